package mmdbreader

import (
	"runtime"

	"github.com/mmdbkit/mmdbreader/internal/mmdberrors"
)

type verifier struct {
	reader *Reader
}

// Verify checks that the database is structurally valid: it validates the
// metadata, walks the full search tree, checks the data section separator,
// and decodes every reachable data section entry. This is stricter than
// the format itself requires and may reject databases a plain Lookup can
// still read fine.
func (r *Reader) Verify() error {
	v := verifier{r}
	if err := v.verifyMetadata(); err != nil {
		return err
	}
	err := v.verifyDatabase()
	runtime.KeepAlive(v.reader)
	return err
}

func (v *verifier) verifyMetadata() error {
	metadata := v.reader.Metadata

	if metadata.DatabaseType == "" {
		return testError("database_type", "non-empty string", metadata.DatabaseType)
	}
	if len(metadata.Description) == 0 {
		return testError("description", "non-empty map", metadata.Description)
	}
	if metadata.IPVersion != 4 && metadata.IPVersion != 6 {
		return testError("ip_version", "4 or 6", metadata.IPVersion)
	}
	if metadata.RecordSize != 24 && metadata.RecordSize != 28 && metadata.RecordSize != 32 {
		return testError("record_size", "24, 28, or 32", metadata.RecordSize)
	}
	if metadata.NodeCount == 0 {
		return testError("node_count", "positive integer", metadata.NodeCount)
	}
	return nil
}

func (v *verifier) verifyDatabase() error {
	offsets, err := v.verifySearchTree()
	if err != nil {
		return err
	}
	if err := v.verifyDataSectionSeparator(); err != nil {
		return err
	}
	return v.reader.decoder.VerifyDataSection(offsets)
}

func (v *verifier) verifySearchTree() (map[uint]bool, error) {
	offsets := make(map[uint]bool)
	for result := range v.reader.Networks() {
		if err := result.Err(); err != nil {
			return nil, err
		}
		offsets[result.offset] = true
	}
	return offsets, nil
}

func (v *verifier) verifyDataSectionSeparator() error {
	separatorStart := v.reader.Metadata.NodeCount * v.reader.Metadata.RecordSize / 4
	separator := v.reader.buffer[separatorStart : separatorStart+dataSectionSeparatorSize]
	for _, b := range separator {
		if b != 0 {
			return mmdberrors.NewInvalidDatabaseError("unexpected byte in data separator: %v", separator)
		}
	}
	return nil
}

func testError(field string, expected, actual any) error {
	return mmdberrors.NewInvalidDatabaseError("%v - expected: %v actual: %v", field, expected, actual)
}
