package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// GenesisHash returns the well-defined previous_hash constant for block 0 of every
// chain: HashSize zero bytes.
func GenesisHash() []byte {
	return make([]byte, HashSize)
}

// IsGenesisHash reports whether h equals the genesis constant.
func IsGenesisHash(h []byte) bool {
	return bytes.Equal(h, GenesisHash())
}

// AuditEvent is one immutable record of a security/compliance-relevant action.
// Once appended it is never updated in place; corrections are new events with
// Action=ActionCorrection referencing the original resource.
type AuditEvent struct {
	ID          uuid.UUID
	ChainID     string
	BlockNumber int64

	// OccurredAt is the action timestamp, monotonic non-decreasing with
	// BlockNumber within a chain. RecordedAt is when the appender persisted it.
	OccurredAt time.Time
	RecordedAt time.Time

	EventType    EventType
	ActorID      string
	ResourceType string
	ResourceID   string
	Action       Action
	Outcome      Outcome

	// HashSchemeVersion is the canonicalization scheme the hashes were computed
	// under. Fed into the hash itself.
	HashSchemeVersion int32

	// PayloadDigest is the SHA-256 digest of the plaintext sensitive payload; it is
	// hash-relevant so payload tampering breaks the chain. Empty when the event has
	// no payload.
	PayloadDigest []byte

	// EncryptedPayload is the sensitive payload ciphertext. Stored outside the hash
	// input and never included in reports or exports.
	EncryptedPayload []byte

	PreviousHash []byte
	CurrentHash  []byte
}

// HashFields is the canonical field set the event hasher consumes. Everything in
// here participates in the current_hash computation; nothing else does.
type HashFields struct {
	ChainID           string
	BlockNumber       int64
	OccurredAt        time.Time
	EventType         EventType
	ActorID           string
	ResourceType      string
	ResourceID        string
	Action            Action
	Outcome           Outcome
	HashSchemeVersion int32
	PayloadDigest     []byte
}

// HashFieldsOf extracts the hash-relevant field set from a persisted event, for
// recomputation during verification.
func HashFieldsOf(event *AuditEvent) HashFields {
	return HashFields{
		ChainID:           event.ChainID,
		BlockNumber:       event.BlockNumber,
		OccurredAt:        event.OccurredAt,
		EventType:         event.EventType,
		ActorID:           event.ActorID,
		ResourceType:      event.ResourceType,
		ResourceID:        event.ResourceID,
		Action:            event.Action,
		Outcome:           event.Outcome,
		HashSchemeVersion: event.HashSchemeVersion,
		PayloadDigest:     event.PayloadDigest,
	}
}
