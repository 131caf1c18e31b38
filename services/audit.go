package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"accessgate-backend/models"
)

// AuditRecorder emits structured diagnostic events. Emission is
// fire-and-forget: it never blocks and never fails the primary
// operation. The database sink is optional.
type AuditRecorder struct {
	logger *zap.Logger
	db     *gorm.DB
}

func NewAuditRecorder(logger *zap.Logger, db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{logger: logger, db: db}
}

// Record logs the event and, when a sink is configured, persists it on a
// detached goroutine. Persistence errors are logged and dropped.
func (r *AuditRecorder) Record(event, userID string, details map[string]any) {
	fields := []zap.Field{zap.String("event", event)}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	r.logger.Info("audit", fields...)

	if r.db == nil {
		return
	}

	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	go func() {
		defer func() {
			_ = recover()
		}()
		rec := models.AuditEvent{Event: event, UserId: userID, Details: payload}
		if err := r.db.Create(&rec).Error; err != nil {
			r.logger.Warn("audit event write failed", zap.String("event", event), zap.Error(err))
		}
	}()
}
