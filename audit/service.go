// audit/service.go
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dev-mohitbeniwal/echo-cse/util"
)

type Service interface {
	LogEvent(ctx context.Context, log AuditLog) error
	QueryLogs(ctx context.Context, from, to time.Time, originator, resourceID string) ([]AuditLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogEvent(ctx context.Context, log AuditLog) error {
	return s.repo.LogEvent(ctx, log)
}

func (s *service) QueryLogs(ctx context.Context, from, to time.Time, originator, resourceID string) ([]AuditLog, error) {
	return s.repo.QueryLogs(ctx, from, to, originator, resourceID)
}

// Subscribe records every resource and access event published on eventBus
func Subscribe(eventBus *util.EventBus, s Service) {
	handler := func(ctx context.Context, event util.Event) error {
		payload, ok := event.Payload.(util.ResourceEvent)
		if !ok {
			return fmt.Errorf("invalid event payload type: %T", event.Payload)
		}
		return s.LogEvent(ctx, AuditLog{
			Timestamp:     time.Now(),
			Event:         event.Type,
			Originator:    payload.Originator,
			Operation:     payload.Operation,
			ResourceID:    payload.ResourceID,
			ResourceType:  payload.ResourceType,
			AccessGranted: event.Type != util.EventAccessDenied,
			Detail:        payload.Detail,
		})
	}
	for _, eventType := range []string{
		util.EventResourceCreated,
		util.EventResourceUpdated,
		util.EventResourceDeleted,
		util.EventAccessDenied,
	} {
		eventBus.Subscribe(eventType, handler)
	}
}
