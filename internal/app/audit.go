/**
 * @description
 * Best-effort audit trail and event fan-out. Neither may ever fail a business
 * operation: failures are logged and swallowed.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/mojoplatform/settlement-service/internal/store"
)

// EventsExchange is the topic exchange all settlement events are published to.
const EventsExchange = "settlement.events"

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Auditor writes audit entries through the repository, fire-and-forget.
type Auditor struct {
	repo store.Repository
}

// NewAuditor creates an Auditor. A nil repository disables auditing.
func NewAuditor(repo store.Repository) *Auditor {
	return &Auditor{repo: repo}
}

// Record writes one audit entry. Errors are logged, never propagated.
func (a *Auditor) Record(ctx context.Context, action, resource, resourceID, actorID string, oldValue, newValue any, metadata map[string]any) {
	if a == nil || a.repo == nil {
		return
	}

	err := a.repo.InsertAuditLog(ctx, store.AuditLogParams{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		ActorID:    actorID,
		OldValue:   oldValue,
		NewValue:   newValue,
		Metadata:   metadata,
	})
	if err != nil {
		log.Printf("WARN: failed to record audit entry %s/%s: %v", action, resource, err)
	}
}

type settlementEvent struct {
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Detail     any       `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// publishEvent sends a settlement event, logging and swallowing failures.
func publishEvent(ctx context.Context, publisher EventPublisher, routingKey, resource, resourceID string, detail any) {
	if publisher == nil {
		return
	}

	payload := settlementEvent{
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
		Timestamp:  time.Now().UTC(),
	}
	if err := publisher.Publish(ctx, EventsExchange, routingKey, payload); err != nil {
		log.Printf("WARN: failed to publish event %s: %v", routingKey, err)
	}
}
