//go:build !windows && !appengine && (linux || darwin || freebsd || openbsd || netbsd || dragonfly || solaris)
// +build !windows,!appengine
// +build linux darwin freebsd openbsd netbsd dragonfly solaris

package mmdbreader

import "golang.org/x/sys/unix"

func mmap(fd, length int) ([]byte, error) {
	return unix.Mmap(fd, 0, length, unix.PROT_READ, unix.MAP_SHARED)
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}
