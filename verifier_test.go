package mmdbreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsWellFormedDatabase(t *testing.T) {
	db, err := FromBytes(buildFixture())
	require.NoError(t, err)
	assert.NoError(t, db.Verify())
}

func TestVerifyRejectsEmptyDatabaseType(t *testing.T) {
	db, err := FromBytes(buildFixture())
	require.NoError(t, err)

	db.Metadata.DatabaseType = ""
	assert.Error(t, db.Verify())
}

func TestVerifyRejectsBadRecordSize(t *testing.T) {
	db, err := FromBytes(buildFixture())
	require.NoError(t, err)

	db.Metadata.RecordSize = 20
	assert.Error(t, db.Verify())
}

func TestVerifyRejectsCorruptSeparator(t *testing.T) {
	data := buildFixture()
	db, err := FromBytes(data)
	require.NoError(t, err)

	separatorStart := db.Metadata.NodeCount * db.Metadata.RecordSize / 4
	db.buffer[separatorStart] = 0xFF

	assert.Error(t, db.Verify())
}
