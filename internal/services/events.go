// internal/services/events.go
package services

// Event names published by the core engines. The api layer fans these out
// to connected browser clients; gameplay logic never depends on them.
const (
	EventStageChanged      = "stage_changed"
	EventActCompleted      = "act_completed"
	EventRelationshipLevel = "relationship_level"
	EventQuestCompleted    = "quest_completed"
	EventDialogueUnlock    = "dialogue_unlock"
)

// EventPublisher receives game events for fan-out to observers.
// Implementations must not block.
type EventPublisher interface {
	Publish(event string, data interface{})
}

// NopPublisher discards events. Used when no observer is wired, and in
// tests that do not care about notifications.
type NopPublisher struct{}

func (NopPublisher) Publish(event string, data interface{}) {}
