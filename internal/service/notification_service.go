package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/quiz-platform/internal/config"
	"github.com/spec-kit/quiz-platform/internal/events"
	"github.com/spec-kit/quiz-platform/internal/observability"
)

// NotificationService is the audit/notification sink for auth events: every
// event lands in the structured log, login outcomes feed the metrics
// counters, and a lockout additionally triggers an email to the account.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to auth events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.audit)
	n.dispatcher.Subscribe(events.EventLoginSucceeded, n.handleLoginSucceeded)
	n.dispatcher.Subscribe(events.EventLoginFailed, n.handleLoginFailed)
	n.dispatcher.Subscribe(events.EventAccountLocked, n.handleAccountLocked)
	n.dispatcher.Subscribe(events.EventAccountUnlocked, n.audit)
	n.dispatcher.Subscribe(events.EventSessionRegistered, n.audit)
	n.dispatcher.Subscribe(events.EventSessionEvicted, n.audit)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.audit)
}

func (n *NotificationService) audit(_ context.Context, event events.Event) error {
	n.logger.Info("audit",
		zap.String("event", string(event.Type)),
		zap.String("username", event.Username),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleLoginSucceeded(ctx context.Context, event events.Event) error {
	n.metrics.RecordAuthOutcome("success")
	return n.audit(ctx, event)
}

func (n *NotificationService) handleLoginFailed(ctx context.Context, event events.Event) error {
	n.metrics.RecordAuthOutcome("rejected")
	return n.audit(ctx, event)
}

func (n *NotificationService) handleAccountLocked(ctx context.Context, event events.Event) error {
	n.metrics.RecordAuthOutcome("locked")
	if payload, ok := event.Payload.(events.AccountLockedPayload); ok {
		n.sendLockoutEmailStub(ctx, event.Username, payload.Email)
	}
	return n.audit(ctx, event)
}

func (n *NotificationService) sendLockoutEmailStub(_ context.Context, username, email string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || email == "" {
		return
	}
	n.logger.Info("sendLockoutEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", email),
		zap.String("username", username))
}
