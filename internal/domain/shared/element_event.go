package shared

// EventElementChanged is published after a tracked element was written
const EventElementChanged = "ElementChanged"

// ElementAction tells what happened to an element
type ElementAction string

const (
	ElementCreated ElementAction = "created"
	ElementUpdated ElementAction = "updated"
	ElementDeleted ElementAction = "deleted"
)

// ElementChangedEvent notifies subscribers (cache invalidation, forwarding)
// that an element changed
type ElementChangedEvent struct {
	BaseDomainEvent
	TargetType TargetType    `json:"target_type"`
	TargetID   uint          `json:"target_id"`
	Action     ElementAction `json:"action"`
}

// NewElementChangedEvent creates the event for element
func NewElementChangedEvent(element Trackable, action ElementAction) *ElementChangedEvent {
	return &ElementChangedEvent{
		BaseDomainEvent: NewBaseDomainEvent(EventElementChanged, string(element.TargetType()), element.GetID()),
		TargetType:      element.TargetType(),
		TargetID:        element.GetID(),
		Action:          action,
	}
}
