package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID(baseTime)
	assert.True(t, strings.HasPrefix(id, "snapshot-20260314-092653-"), id)
	assert.True(t, ValidID(id))
	assert.NotEqual(t, id, NewID(baseTime))
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"snapshot-20260314-092653-0a1b2c3d", true},
		{"snapshot-20260314-092653-0A1B2C3D", false},
		{"snapshot-2026031-092653-0a1b2c3d", false},
		{"../snapshot-20260314-092653-0a1b2c3d", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidID(tt.id), tt.id)
	}
}

func TestMetadata_Validate(t *testing.T) {
	md := testMetadata(baseTime, []byte("x"))
	require.NoError(t, md.Validate())

	md.ID = "bad"
	md.StoredChecksum = ""
	md.Compression = "RAR"
	err := md.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestObjectNames(t *testing.T) {
	assert.Equal(t, "snapshots/abc/artifact.bin", objectName("snapshots", "abc", payloadObject))
	assert.Equal(t, "snapshots/abc/", objectName("snapshots/", "abc", ""))
	assert.Equal(t, "__etc/metadata.json", objectName("", "../etc", metadataObject))
	assert.Equal(t, "abc", idFromMetadataKey("snapshots/", "snapshots/abc/metadata.json"))
	assert.Empty(t, idFromMetadataKey("snapshots/", "snapshots/abc/artifact.bin"))
	assert.Empty(t, idFromMetadataKey("snapshots/", "snapshots/abc"))
}
