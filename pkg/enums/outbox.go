package enums

import "fmt"

// OutboxEventType enumerates the domain events published through the outbox.
type OutboxEventType string

const (
	EventMetalHalted   OutboxEventType = "metal.halted"
	EventMetalResumed  OutboxEventType = "metal.resumed"
	EventPriceLockUsed OutboxEventType = "price_lock.used"
)

var validOutboxEventTypes = []OutboxEventType{
	EventMetalHalted,
	EventMetalResumed,
	EventPriceLockUsed,
}

// IsValid reports whether the event type is registered.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an event belongs to.
type OutboxAggregateType string

const (
	AggregateHaltState OutboxAggregateType = "halt_state"
	AggregatePriceLock OutboxAggregateType = "price_lock"
)
