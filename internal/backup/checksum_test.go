package backup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	return &Document{
		SchemaVersion: 3,
		TenantID:      "tenant-1",
		ExportedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Entities: []EntitySet{
			{Type: "users", Rows: []json.RawMessage{
				json.RawMessage(`{"id":"u-1","name":"Alice"}`),
				json.RawMessage(`{"id":"u-2","name":"Bob"}`),
			}},
			{Type: "companies", Rows: []json.RawMessage{
				json.RawMessage(`{"id":"c-1","name":"Acme"}`),
			}},
		},
	}
}

func TestComputeChecksum_Deterministic(t *testing.T) {
	a, err := ComputeChecksum(testDocument())
	require.NoError(t, err)
	b, err := ComputeChecksum(testDocument())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeChecksum_KeyOrderIndependent(t *testing.T) {
	doc := testDocument()
	expected, err := ComputeChecksum(doc)
	require.NoError(t, err)

	// Same row content with reordered object keys hashes identically.
	doc.Entities[0].Rows[0] = json.RawMessage(`{"name":"Alice","id":"u-1"}`)
	actual, err := ComputeChecksum(doc)
	require.NoError(t, err)

	assert.Equal(t, expected, actual)
}

func TestComputeChecksum_RowOrderMatters(t *testing.T) {
	doc := testDocument()
	expected, err := ComputeChecksum(doc)
	require.NoError(t, err)

	doc.Entities[0].Rows[0], doc.Entities[0].Rows[1] = doc.Entities[0].Rows[1], doc.Entities[0].Rows[0]
	actual, err := ComputeChecksum(doc)
	require.NoError(t, err)

	assert.NotEqual(t, expected, actual)
}

func TestCanonicalJSON_PreservesLargeIntegers(t *testing.T) {
	// BIGINT values above 2^53 must survive canonicalization byte for
	// byte; these bytes become the stored data document.
	doc := &Document{
		TenantID: "tenant-1",
		Entities: []EntitySet{
			{Type: "documents", Rows: []json.RawMessage{
				json.RawMessage(`{"id":"d-1","size_bytes":9007199254740993}`),
			}},
		},
	}

	canonical, err := CanonicalJSON(doc)
	require.NoError(t, err)

	assert.Contains(t, string(canonical), `"size_bytes":9007199254740993`)
	assert.NotContains(t, string(canonical), "9007199254740992")
	assert.NotContains(t, string(canonical), "e+")
}

func TestVerifyChecksum_Match(t *testing.T) {
	doc := testDocument()
	sum, err := ComputeChecksum(doc)
	require.NoError(t, err)

	assert.NoError(t, VerifyChecksum(doc, sum))
}

func TestVerifyChecksum_TamperedDocument(t *testing.T) {
	doc := testDocument()
	sum, err := ComputeChecksum(doc)
	require.NoError(t, err)

	doc.Entities[0].Rows[0] = json.RawMessage(`{"id":"u-1","name":"Mallory"}`)

	err = VerifyChecksum(doc, sum)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptBackup)
}
