package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptBackup is returned when a data document does not match its
// recorded checksum. A restore seeing this performs no writes.
var ErrCorruptBackup = errors.New("backup data checksum mismatch")

// ComputeChecksum returns the hex SHA-256 of the document's canonical JSON
// form. Canonicalization round-trips the document through generic values so
// object keys are emitted in sorted order regardless of how the document was
// produced; entity and row order is part of the document itself.
func ComputeChecksum(doc *Document) (string, error) {
	canonical, err := CanonicalJSON(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum recomputes the document checksum and compares it to the
// expected value, returning ErrCorruptBackup on mismatch.
func VerifyChecksum(doc *Document, expected string) error {
	actual, err := ComputeChecksum(doc)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrCorruptBackup, expected, actual)
	}
	return nil
}

// CanonicalJSON serializes v with deterministic field ordering.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	// encoding/json sorts map keys, so a decode/encode round trip yields
	// a canonical byte form. UseNumber keeps numeric literals intact;
	// decoding through float64 would corrupt BIGINT values above 2^53.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return canonical, nil
}
