// Package service provides the pure cryptographic services of the audit chain:
// event hashing, payload encryption at rest, and export signing.
package service

import (
	"context"
	"io"

	"github.com/allisson/auditchain/internal/audit/domain"
)

// EventHasher computes the deterministic content hash of one audit event. No I/O,
// no side effects, safe for concurrent use.
type EventHasher interface {
	// ComputeHash returns SHA-256(canonical(fields) || previousHash). Returns an
	// error wrapping ErrInvalidField if a required field is missing or malformed.
	ComputeHash(fields domain.HashFields, previousHash []byte) ([]byte, error)
}

// PayloadCipher encrypts sensitive payloads at rest. The ciphertext never
// participates in the chain hash; the plaintext digest does.
type PayloadCipher interface {
	// Encrypt returns the ciphertext and the SHA-256 digest of the plaintext.
	Encrypt(ctx context.Context, plaintext []byte) (ciphertext, digest []byte, err error)

	// Decrypt returns the plaintext and verifies it against the expected digest.
	Decrypt(ctx context.Context, ciphertext, expectedDigest []byte) ([]byte, error)

	// Close releases the underlying keeper.
	Close() error
}

// ExportSigner produces an integrity trailer over a compliance export stream.
type ExportSigner interface {
	// NewWriter wraps w so all bytes written through it are MACed. Sum returns the
	// accumulated HMAC-SHA256 signature.
	NewWriter(w io.Writer) (SigningWriter, error)
}

// SigningWriter accumulates an HMAC over everything written through it.
type SigningWriter interface {
	io.Writer
	Sum() []byte
}
