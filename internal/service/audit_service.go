package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/events"
)

// AuditService writes structured security log lines for session events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to session events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserSignedIn, a.handle)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handle)
	a.dispatcher.Subscribe(events.EventUserSignedOut, a.handle)
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("username", event.Username),
		zap.Time("occurred_at", event.OccurredAt),
		zap.Any("payload", event.Payload),
	)
	return nil
}
