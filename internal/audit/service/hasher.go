package service

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/allisson/auditchain/internal/audit/domain"
	apperrors "github.com/allisson/auditchain/internal/errors"
)

// hashSchemeLabel names the canonicalization scheme and is the first field hashed.
// Bump the label together with domain.HashSchemeVersion; historical chains keep
// verifying under the version recorded in each event.
const hashSchemeLabel = "audit-chain-hash-v1"

type eventHasher struct{}

// NewEventHasher creates the SHA-256 event hasher using length-prefixed binary
// canonicalization.
func NewEventHasher() EventHasher {
	return &eventHasher{}
}

// ComputeHash validates the canonical field set, serializes it in a fixed order,
// and returns SHA-256(canonical || previousHash). Deterministic: identical input
// always yields an identical digest.
func (h *eventHasher) ComputeHash(fields domain.HashFields, previousHash []byte) ([]byte, error) {
	if err := validateHashFields(fields); err != nil {
		return nil, err
	}
	if len(previousHash) != domain.HashSize {
		return nil, apperrors.Wrap(
			apperrors.ErrInvalidField,
			fmt.Sprintf("previous hash must be %d bytes, got %d", domain.HashSize, len(previousHash)),
		)
	}

	canonical := canonicalize(fields)

	digest := sha256.New()
	digest.Write(canonical)
	digest.Write(previousHash)
	return digest.Sum(nil), nil
}

// canonicalize converts the field set to its canonical byte representation.
// Format: scheme label, then each variable-length field with a 4-byte big-endian
// length prefix, fixed-width integers and the UnixNano timestamp in between. The
// field order is part of the versioned scheme and must never change within a
// scheme version.
func canonicalize(fields domain.HashFields) []byte {
	// Typical event canonical form is well under 512 bytes.
	buf := make([]byte, 0, 512)

	buf = appendLengthPrefixed(buf, []byte(hashSchemeLabel))

	version := make([]byte, 4)
	binary.BigEndian.PutUint32(version, uint32(fields.HashSchemeVersion))
	buf = append(buf, version...)

	buf = appendLengthPrefixed(buf, []byte(fields.ChainID))

	blockNumber := make([]byte, 8)
	binary.BigEndian.PutUint64(blockNumber, uint64(fields.BlockNumber))
	buf = append(buf, blockNumber...)

	occurredAt := make([]byte, 8)
	binary.BigEndian.PutUint64(occurredAt, uint64(fields.OccurredAt.UTC().UnixNano()))
	buf = append(buf, occurredAt...)

	buf = appendLengthPrefixed(buf, []byte(fields.EventType))
	buf = appendLengthPrefixed(buf, []byte(fields.ActorID))
	buf = appendLengthPrefixed(buf, []byte(fields.ResourceType))
	buf = appendLengthPrefixed(buf, []byte(fields.ResourceID))
	buf = appendLengthPrefixed(buf, []byte(fields.Action))
	buf = appendLengthPrefixed(buf, []byte(fields.Outcome))
	buf = appendLengthPrefixed(buf, fields.PayloadDigest)

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
// The prefix prevents ambiguity between adjacent variable-length fields.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 0xFFFFFFFF {
		panic("data length exceeds uint32 max")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(dataLen))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// validateHashFields checks the semantic type of every required field once,
// before hashing. Callers get ErrInvalidField, never a silently wrong digest.
func validateHashFields(fields domain.HashFields) error {
	if fields.ChainID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidField, "chain id is required")
	}
	if fields.BlockNumber < 0 {
		return apperrors.Wrap(apperrors.ErrInvalidField, "block number must be non-negative")
	}
	if fields.OccurredAt.IsZero() {
		return apperrors.Wrap(apperrors.ErrInvalidField, "occurred_at is required")
	}
	if fields.HashSchemeVersion != domain.HashSchemeVersion {
		return apperrors.Wrap(
			apperrors.ErrInvalidField,
			fmt.Sprintf("unsupported hash scheme version %d", fields.HashSchemeVersion),
		)
	}
	if _, err := domain.ParseEventType(string(fields.EventType)); err != nil {
		return err
	}
	if fields.ActorID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidField, "actor id is required")
	}
	if fields.ResourceType == "" {
		return apperrors.Wrap(apperrors.ErrInvalidField, "resource type is required")
	}
	if fields.ResourceID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidField, "resource id is required")
	}
	if _, err := domain.ParseAction(string(fields.Action)); err != nil {
		return err
	}
	if _, err := domain.ParseOutcome(string(fields.Outcome)); err != nil {
		return err
	}
	if len(fields.PayloadDigest) != 0 && len(fields.PayloadDigest) != domain.HashSize {
		return apperrors.Wrap(
			apperrors.ErrInvalidField,
			fmt.Sprintf("payload digest must be empty or %d bytes", domain.HashSize),
		)
	}
	return nil
}
