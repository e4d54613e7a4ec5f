package snapshot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksummer_StampAndVerify(t *testing.T) {
	snap := currentSnapshot(t, map[string][]Record{
		"printers": {{"id": "p1", "name": "Lobby"}},
	}, nil)

	c := NewChecksummer(ChecksumSHA256)
	assert.Len(t, snap.Checksum, 64)
	assert.True(t, c.Verify(snap))

	// restamping is deterministic
	again := snap.Clone()
	require.NoError(t, c.Stamp(again))
	assert.Equal(t, snap.Checksum, again.Checksum)
}

func TestChecksummer_DetectsAnyChange(t *testing.T) {
	c := NewChecksummer(ChecksumSHA256)

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"record field", func(s *Snapshot) { s.Collections["printers"][0]["name"] = "Lobbx" }},
		{"added record", func(s *Snapshot) {
			s.Collections["printers"] = append(s.Collections["printers"], Record{"id": "p2"})
		}},
		{"metadata", func(s *Snapshot) { s.Metadata.ExportedBy = "someone" }},
		{"preference", func(s *Snapshot) { s.Preferences[PrefDefaultPrinterTab] = "fusers" }},
		{"version", func(s *Snapshot) { s.Version = Version12 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := currentSnapshot(t, map[string][]Record{
				"printers": {{"id": "p1", "name": "Lobby"}},
			}, nil)
			tt.mutate(snap)
			assert.False(t, c.Verify(snap))
		})
	}
}

func TestChecksummer_EmptyChecksumNeverVerifies(t *testing.T) {
	snap := currentSnapshot(t, map[string][]Record{"printers": {}}, nil)
	snap.Checksum = ""
	assert.False(t, NewChecksummer(ChecksumSHA256).Verify(snap))
	assert.False(t, NewChecksummer(ChecksumSHA256).Verify(nil))
}

func TestChecksummer_Rolling(t *testing.T) {
	rolling := NewChecksummer(ChecksumRolling)
	assert.Equal(t, ChecksumRolling, rolling.Algorithm())

	snap := currentSnapshot(t, map[string][]Record{"printers": {{"id": "p1"}}}, nil)
	require.NoError(t, rolling.Stamp(snap))
	assert.True(t, strings.HasPrefix(snap.Checksum, "r32:"))
	assert.Len(t, snap.Checksum, len("r32:")+8)

	// either checksummer verifies either kind
	assert.True(t, NewChecksummer(ChecksumSHA256).Verify(snap))
	assert.True(t, rolling.Verify(snap))

	snap.Collections["printers"][0]["id"] = "p2"
	assert.False(t, rolling.Verify(snap))
}

func TestRollingHash(t *testing.T) {
	assert.Equal(t, uint32(0), rollingHash(nil))
	assert.Equal(t, uint32('a'), rollingHash([]byte("a")))
	assert.Equal(t, uint32('a')*31+uint32('b'), rollingHash([]byte("ab")))
}

func TestNewChecksummer_UnknownFallsBackToSHA256(t *testing.T) {
	assert.Equal(t, ChecksumSHA256, NewChecksummer("md5").Algorithm())
}

func TestChecksummer_VerifyRawMatchesStruct(t *testing.T) {
	snap := currentSnapshot(t, map[string][]Record{
		"printers":  {{"id": "p1", "pagesPrinted": 12345, "ratio": 0.25}},
		"inventory": {{"id": "i1", "quantity": 5, "tags": []any{"x", "y"}}},
	}, nil)

	data, err := snap.ToJSON()
	require.NoError(t, err)

	raw, err := ParseArtifact(bytes.NewReader(data))
	require.NoError(t, err)

	c := NewChecksummer(ChecksumSHA256)
	assert.NoError(t, c.VerifyRaw(raw))

	raw["extra"] = "tampered"
	err = c.VerifyRaw(raw)
	require.Error(t, err)
	snapErr, ok := AsSnapshotError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeIntegrity, snapErr.Type)
	assert.Equal(t, snap.Checksum, snapErr.Context["expected"])
}

func TestChecksummer_VerifyRawMissingChecksum(t *testing.T) {
	err := NewChecksummer(ChecksumSHA256).VerifyRaw(map[string]any{"version": "2.0"})
	snapErr, ok := AsSnapshotError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeIntegrity, snapErr.Type)
}
