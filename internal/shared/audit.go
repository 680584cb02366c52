package shared

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AuditStream is the Redis stream holding audit records.
const AuditStream = "officine:audit"

const auditMaxLen = 10000

// AuditLog is one audit record.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends records to a capped Redis stream.
type AuditLogger struct {
	client redis.Cmdable
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(client redis.Cmdable) *AuditLogger {
	return &AuditLogger{client: client}
}

// Record appends the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	if log.At.IsZero() {
		log.At = time.Now()
	}
	return l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: AuditStream,
		MaxLen: auditMaxLen,
		Approx: true,
		Values: map[string]any{
			"actor_id":    strconv.FormatInt(log.ActorID, 10),
			"action":      log.Action,
			"entity":      log.Entity,
			"entity_id":   log.EntityID,
			"meta":        string(metaJSON),
			"occurred_at": log.At.UTC().Format(time.RFC3339),
		},
	}).Err()
}
