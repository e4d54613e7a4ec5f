package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ChecksumAlgorithm selects the digest used for new checksums
type ChecksumAlgorithm string

const (
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumRolling is a 32-bit multiplicative rolling hash for platforms
	// without a usable SHA-256. It detects corruption, not tampering.
	ChecksumRolling ChecksumAlgorithm = "rolling"
)

const rollingPrefix = "r32:"

// Checksummer computes and verifies snapshot checksums
type Checksummer struct {
	algorithm ChecksumAlgorithm
}

// NewChecksummer creates a checksummer; an unknown algorithm falls back to sha256
func NewChecksummer(algorithm ChecksumAlgorithm) *Checksummer {
	if algorithm != ChecksumRolling {
		algorithm = ChecksumSHA256
	}
	return &Checksummer{algorithm: algorithm}
}

// Algorithm returns the algorithm used for new checksums
func (c *Checksummer) Algorithm() ChecksumAlgorithm {
	return c.algorithm
}

// Compute hashes the canonical serialization of payload
func (c *Checksummer) Compute(payload any) (string, error) {
	data, err := canonicalJSON(payload)
	if err != nil {
		return "", NewStructuralError("failed to serialize payload for checksum", err)
	}
	return digest(c.algorithm, data), nil
}

// Stamp computes the checksum of snap with its checksum cleared and sets it
func (c *Checksummer) Stamp(snap *Snapshot) error {
	sum, err := c.Compute(withoutChecksum(snap))
	if err != nil {
		return err
	}
	snap.Checksum = sum
	return nil
}

// Verify recomputes the checksum of snap and compares it to the stored one.
// The algorithm is taken from the stored value so either kind verifies.
func (c *Checksummer) Verify(snap *Snapshot) bool {
	if snap == nil || snap.Checksum == "" {
		return false
	}
	data, err := canonicalJSON(withoutChecksum(snap))
	if err != nil {
		return false
	}
	return digest(algorithmOf(snap.Checksum), data) == snap.Checksum
}

// VerifyRaw verifies a decoded artifact document. Every key except
// "checksum" is covered, so unknown and legacy fields count too.
func (c *Checksummer) VerifyRaw(raw map[string]any) error {
	stored, _ := raw["checksum"].(string)
	if stored == "" {
		return NewIntegrityError("artifact has no checksum", nil)
	}

	payload := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "checksum" {
			payload[k] = v
		}
	}

	data, err := canonicalJSON(payload)
	if err != nil {
		return NewStructuralError("failed to serialize artifact for checksum", err)
	}

	if computed := digest(algorithmOf(stored), data); computed != stored {
		return NewIntegrityError("checksum mismatch: artifact is corrupted or was modified", nil).
			WithContext("expected", stored).
			WithContext("computed", computed)
	}
	return nil
}

func withoutChecksum(snap *Snapshot) Snapshot {
	temp := *snap
	temp.Checksum = ""
	return temp
}

func algorithmOf(checksum string) ChecksumAlgorithm {
	if strings.HasPrefix(checksum, rollingPrefix) {
		return ChecksumRolling
	}
	return ChecksumSHA256
}

func digest(algorithm ChecksumAlgorithm, data []byte) string {
	if algorithm == ChecksumRolling {
		return rollingPrefix + fmt.Sprintf("%08x", rollingHash(data))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// rollingHash is h = h*31 + b over every byte, modulo 2^32
func rollingHash(data []byte) uint32 {
	var h uint32
	for _, b := range data {
		h = h*31 + uint32(b)
	}
	return h
}

// canonicalJSON serializes v so that a struct and the generic document
// decoded from it produce identical bytes: object keys sorted, numbers
// kept verbatim.
func canonicalJSON(v any) ([]byte, error) {
	first, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(first))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
