// Package ids mints identifiers for jobs and tracked profiles.
//
// Two forms are provided. UUIDs suit internal records where global
// uniqueness matters and length does not. Short base62 codes suit
// user-facing handles such as shareable report slugs; they are minted
// against an existence check so collisions are resolved at creation time.
package ids

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultShortLength is the starting length for minted short codes.
const DefaultShortLength = 8

// maxMintAttempts bounds collision retries before the length grows.
const maxMintAttempts = 5

// ExistsFunc reports whether an identifier is already taken.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// NewUUID returns a random UUID string.
func NewUUID() string {
	return uuid.NewString()
}

// Short returns a random base62 string of the given length.
func Short(length int) (string, error) {
	if length <= 0 {
		return "", bferrors.NewValidationError("ids", "length", length, "must be positive")
	}

	max := big.NewInt(int64(len(base62Alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", bferrors.NewOperationError("ids", "Short", err)
		}
		buf[i] = base62Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Mint returns a short code that exists reports as free. After repeated
// collisions at one length it grows the code by one character, so minting
// terminates even in a crowded namespace.
func Mint(ctx context.Context, length int, exists ExistsFunc) (string, error) {
	if length <= 0 {
		length = DefaultShortLength
	}
	if exists == nil {
		return Short(length)
	}

	for {
		for attempt := 0; attempt < maxMintAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			id, err := Short(length)
			if err != nil {
				return "", err
			}

			taken, err := exists(ctx, id)
			if err != nil {
				return "", bferrors.NewOperationError("ids", "Mint", err)
			}
			if !taken {
				return id, nil
			}
		}
		length++
	}
}
