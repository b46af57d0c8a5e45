package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"fluxo/internal/core/id"
	"fluxo/internal/domain/documents/sale"
)

// CompressionAlgo specifies the payload compression algorithm.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditLog persists booking audit entries with a full payload snapshot.
// Large payloads are zstd-compressed. Writes join the caller's
// transaction, so an audit failure rolls the booking back.
type AuditLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ sale.AuditLog = (*AuditLog)(nil)

func NewAuditLog(txManager *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

func (a *AuditLog) Record(ctx context.Context, entry sale.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	raw, compressed, algo := a.encodePayload(payload)

	sql := `
		INSERT INTO sys_audit (
			id, tenant_id, action, origin_type, origin_id, actor,
			payload, payload_compressed, compression_algo, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = a.txManager.GetQuerier(ctx).Exec(ctx, sql,
		id.New(), entry.TenantID, entry.Action, entry.OriginType, entry.OriginID,
		entry.Actor, raw, compressed, algo, recordedAt,
	)
	return err
}

// encodePayload splits a payload over the raw and compressed columns.
// Exactly one of the two return slices is non-nil; sys_audit enforces
// the same with a CHECK constraint.
func (a *AuditLog) encodePayload(payload []byte) (raw, compressed []byte, algo CompressionAlgo) {
	if len(payload) > a.compressThreshold {
		return nil, a.encoder.EncodeAll(payload, nil), CompressionZstd
	}
	return payload, nil, CompressionNone
}

// History returns the audit trail for one origin, newest first, with
// payloads decompressed.
func (a *AuditLog) History(ctx context.Context, tenantID, originType string, originID id.ID, limit int) ([]HistoryEntry, error) {
	sql := `
		SELECT action, actor, payload, payload_compressed, compression_algo, recorded_at
		FROM sys_audit
		WHERE tenant_id = $1 AND origin_type = $2 AND origin_id = $3
		ORDER BY recorded_at DESC
		LIMIT $4
	`
	rows, err := a.txManager.GetQuerier(ctx).Query(ctx, sql, tenantID, originType, originID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var compressed []byte
		var algo CompressionAlgo
		if err := rows.Scan(&e.Action, &e.Actor, &e.Payload, &compressed, &algo, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if algo == CompressionZstd && len(compressed) > 0 {
			decompressed, err := a.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			e.Payload = decompressed
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type HistoryEntry struct {
	Action     string          `db:"action" json:"action"`
	Actor      string          `db:"actor" json:"actor"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	RecordedAt time.Time       `db:"recorded_at" json:"recordedAt"`
}
