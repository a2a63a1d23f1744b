package ids

import (
	"context"
	"errors"
	"strings"
	"testing"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/internal/testutil"
)

func TestNewUUID(t *testing.T) {
	a := NewUUID()
	b := NewUUID()

	testutil.AssertEqual(t, len(a), 36)
	if a == b {
		t.Errorf("expected distinct UUIDs, both were %s", a)
	}
}

func TestShort(t *testing.T) {
	id, err := Short(8)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(id), 8)

	for _, r := range id {
		if !strings.ContainsRune(base62Alphabet, r) {
			t.Errorf("unexpected character %q in %s", r, id)
		}
	}
}

func TestShortInvalidLength(t *testing.T) {
	_, err := Short(0)
	testutil.AssertError(t, err)
	if !errors.Is(err, bferrors.ErrInvalidConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestMintWithoutExists(t *testing.T) {
	id, err := Mint(context.Background(), 0, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(id), DefaultShortLength)
}

func TestMintRetriesCollisions(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, id string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	id, err := Mint(context.Background(), 4, exists)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(id), 4)
	testutil.AssertEqual(t, calls, 3)
}

func TestMintGrowsLengthWhenCrowded(t *testing.T) {
	exists := func(ctx context.Context, id string) (bool, error) {
		return len(id) < 6, nil
	}

	id, err := Mint(context.Background(), 4, exists)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(id), 6)
}

func TestMintPropagatesExistsError(t *testing.T) {
	checkErr := errors.New("store unavailable")
	exists := func(ctx context.Context, id string) (bool, error) {
		return false, checkErr
	}

	_, err := Mint(context.Background(), 4, exists)
	testutil.AssertError(t, err)
	if !errors.Is(err, checkErr) {
		t.Errorf("expected store error to propagate, got %v", err)
	}
}

func TestMintHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exists := func(ctx context.Context, id string) (bool, error) {
		return true, nil
	}

	_, err := Mint(ctx, 4, exists)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
