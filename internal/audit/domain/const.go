// Package domain defines the audit chain domain models: immutable hash-linked
// audit events, per-chain state, and verification reports.
package domain

// HashSchemeVersion identifies the canonical serialization scheme used as hash
// input. It is itself a hashed field, so changing the scheme never silently breaks
// verification of historical chains.
const HashSchemeVersion int32 = 1

// HashSize is the size in bytes of the SHA-256 digests used throughout the chain.
const HashSize = 32

// SystemChainID is the chain that records administrative actions (policy changes,
// legal holds, purge runs). It is never itself a purge target.
const SystemChainID = "system"

// EventType classifies the business action an audit event records. The set is
// closed and validated once at the boundary; free-text comparisons are never used
// downstream.
type EventType string

const (
	// EventTypePHIAccessed records access to protected health information.
	EventTypePHIAccessed EventType = "phi_accessed"

	// EventTypeLogin records an authentication attempt.
	EventTypeLogin EventType = "login"

	// EventTypeDocumentViewed records a document view.
	EventTypeDocumentViewed EventType = "document_viewed"

	// EventTypeRecordCreated records creation of a business record.
	EventTypeRecordCreated EventType = "record_created"

	// EventTypeRecordUpdated records modification of a business record.
	EventTypeRecordUpdated EventType = "record_updated"

	// EventTypeCorrection records a correction referencing an earlier event's
	// resource. Events are never updated in place.
	EventTypeCorrection EventType = "correction"

	// EventTypePolicyChanged records an administrative retention policy mutation.
	EventTypePolicyChanged EventType = "policy_changed"

	// EventTypeLegalHoldSet records placing or lifting a legal hold.
	EventTypeLegalHoldSet EventType = "legal_hold_set"

	// EventTypePurgeInitiated records the scope of a retention purge before any
	// deletion happens.
	EventTypePurgeInitiated EventType = "purge_initiated"

	// EventTypePurgeCompleted records the actual counts after a purge finishes.
	EventTypePurgeCompleted EventType = "purge_completed"
)

// eventTypes is the closed set used for boundary validation.
var eventTypes = map[EventType]struct{}{
	EventTypePHIAccessed:    {},
	EventTypeLogin:          {},
	EventTypeDocumentViewed: {},
	EventTypeRecordCreated:  {},
	EventTypeRecordUpdated:  {},
	EventTypeCorrection:     {},
	EventTypePolicyChanged:  {},
	EventTypeLegalHoldSet:   {},
	EventTypePurgeInitiated: {},
	EventTypePurgeCompleted: {},
}

// ParseEventType validates a raw string against the closed event type set.
// Returns ErrUnknownEventType for values outside the set.
func ParseEventType(raw string) (EventType, error) {
	et := EventType(raw)
	if _, ok := eventTypes[et]; !ok {
		return "", ErrUnknownEventType
	}
	return et, nil
}

// Action describes the operation performed on the resource.
type Action string

const (
	// ActionView is a read of the resource.
	ActionView Action = "view"

	// ActionCreate is a creation of the resource.
	ActionCreate Action = "create"

	// ActionUpdate is a modification of the resource.
	ActionUpdate Action = "update"

	// ActionDelete is a deletion of the resource.
	ActionDelete Action = "delete"

	// ActionExport is a compliance export of the resource.
	ActionExport Action = "export"

	// ActionPurge is a retention purge of audit events.
	ActionPurge Action = "purge"

	// ActionCorrection is a correction of an earlier event.
	ActionCorrection Action = "correction"
)

var actions = map[Action]struct{}{
	ActionView:       {},
	ActionCreate:     {},
	ActionUpdate:     {},
	ActionDelete:     {},
	ActionExport:     {},
	ActionPurge:      {},
	ActionCorrection: {},
}

// ParseAction validates a raw string against the closed action set.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := actions[a]; !ok {
		return "", ErrUnknownAction
	}
	return a, nil
}

// Outcome describes how the recorded action ended.
type Outcome string

const (
	// OutcomeSuccess indicates the action completed.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure indicates the action errored.
	OutcomeFailure Outcome = "failure"

	// OutcomeDenied indicates the action was rejected by authorization.
	OutcomeDenied Outcome = "denied"
)

var outcomes = map[Outcome]struct{}{
	OutcomeSuccess: {},
	OutcomeFailure: {},
	OutcomeDenied:  {},
}

// ParseOutcome validates a raw string against the closed outcome set.
func ParseOutcome(raw string) (Outcome, error) {
	o := Outcome(raw)
	if _, ok := outcomes[o]; !ok {
		return "", ErrUnknownOutcome
	}
	return o, nil
}
