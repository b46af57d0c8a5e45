package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodePayload_SmallStaysRaw(t *testing.T) {
	log, err := NewAuditLog(nil)
	require.NoError(t, err)

	payload := []byte(`{"action":"sale.booked","totalNet":2900}`)
	raw, compressed, algo := log.encodePayload(payload)

	require.Equal(t, payload, raw)
	require.Nil(t, compressed)
	require.Equal(t, CompressionNone, algo)
}

func TestEncodePayload_LargeCompressesAndRoundTrips(t *testing.T) {
	log, err := NewAuditLog(nil)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte(`{"line":"espresso","qty":"2.0000"}`), 1024)
	require.Greater(t, len(payload), log.compressThreshold)

	raw, compressed, algo := log.encodePayload(payload)

	require.Nil(t, raw)
	require.NotEmpty(t, compressed)
	require.Equal(t, CompressionZstd, algo)

	decoded, err := log.decoder.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

// One side of (payload, payload_compressed) must always be set, the
// schema rejects the row otherwise.
func TestEncodePayload_ExactlyOneColumnSet(t *testing.T) {
	log, err := NewAuditLog(nil)
	require.NoError(t, err)

	for _, size := range []int{1, 64, 10*1024 + 1, 64 * 1024} {
		raw, compressed, _ := log.encodePayload(bytes.Repeat([]byte("x"), size))
		require.True(t, (raw == nil) != (compressed == nil), "size %d", size)
	}
}
