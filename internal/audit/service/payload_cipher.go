package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/auditchain/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Keeper is the subset of *secrets.Keeper the cipher needs, extracted for testing.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// kmsPayloadCipher implements PayloadCipher on top of a gocloud.dev secrets keeper.
// Supports gcpkms://, awskms://, azurekeyvault://, hashivault:// and base64key://
// key URIs.
type kmsPayloadCipher struct {
	keeper Keeper
}

// NewKMSPayloadCipher opens a keeper for the configured key URI and returns the
// payload cipher backed by it.
func NewKMSPayloadCipher(ctx context.Context, keyURI string) (PayloadCipher, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return &kmsPayloadCipher{keeper: keeper}, nil
}

// NewPayloadCipherWithKeeper wraps an already-open keeper. Used by tests and by
// callers that manage keeper lifecycle themselves.
func NewPayloadCipherWithKeeper(keeper Keeper) PayloadCipher {
	return &kmsPayloadCipher{keeper: keeper}
}

// Encrypt digests the plaintext with SHA-256 and encrypts it through the keeper.
// The digest is what the chain hash covers; the ciphertext is only stored.
func (c *kmsPayloadCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, []byte, error) {
	if len(plaintext) == 0 {
		return nil, nil, nil
	}

	digest := sha256.Sum256(plaintext)

	ciphertext, err := c.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}

	return ciphertext, digest[:], nil
}

// Decrypt decrypts the ciphertext and confirms the plaintext still matches the
// hash-covered digest. A mismatch means the stored ciphertext was altered.
func (c *kmsPayloadCipher) Decrypt(ctx context.Context, ciphertext, expectedDigest []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}

	plaintext, err := c.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}

	digest := sha256.Sum256(plaintext)
	if !bytes.Equal(digest[:], expectedDigest) {
		return nil, apperrors.Wrap(apperrors.ErrNotVerified, "payload digest mismatch")
	}

	return plaintext, nil
}

// Close releases the underlying keeper.
func (c *kmsPayloadCipher) Close() error {
	return c.keeper.Close()
}

// noopPayloadCipher stores payloads in the clear. Used when no KMS is configured;
// the payload digest still participates in the chain hash.
type noopPayloadCipher struct{}

// NewNoopPayloadCipher creates a cipher that performs no encryption.
func NewNoopPayloadCipher() PayloadCipher {
	return &noopPayloadCipher{}
}

func (c *noopPayloadCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, []byte, error) {
	if len(plaintext) == 0 {
		return nil, nil, nil
	}
	digest := sha256.Sum256(plaintext)
	return plaintext, digest[:], nil
}

func (c *noopPayloadCipher) Decrypt(ctx context.Context, ciphertext, expectedDigest []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	digest := sha256.Sum256(ciphertext)
	if !bytes.Equal(digest[:], expectedDigest) {
		return nil, apperrors.Wrap(apperrors.ErrNotVerified, "payload digest mismatch")
	}
	return ciphertext, nil
}

func (c *noopPayloadCipher) Close() error {
	return nil
}
