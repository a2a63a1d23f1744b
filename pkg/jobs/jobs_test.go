package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/internal/testutil"
)

func newTestStore(t *testing.T, cfg Config) (Store, *testutil.MockClock) {
	t.Helper()

	clock := testutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg.Clock = clock

	s, err := NewWithConfig(cfg)
	testutil.AssertNoError(t, err)
	return s, clock
}

func TestNewWithConfigValidation(t *testing.T) {
	if _, err := NewWithConfig(Config{TTL: -time.Second}); err == nil {
		t.Error("expected error for negative TTL")
	}
	if _, err := NewWithConfig(Config{MaxJobs: -1}); err == nil {
		t.Error("expected error for negative MaxJobs")
	}
}

func TestLifecycle(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	ctx := context.Background()

	job, err := s.Create(ctx, "youtube-analysis")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, job.Status, StatusPending)
	testutil.AssertEqual(t, job.Kind, "youtube-analysis")
	if job.ID == "" {
		t.Fatal("expected a minted job ID")
	}

	testutil.AssertNoError(t, s.Start(job.ID))

	got, err := s.Get(job.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Status, StatusRunning)

	testutil.AssertNoError(t, s.Progress(job.ID, 40, "fetching videos"))

	got, _ = s.Get(job.ID)
	testutil.AssertEqual(t, got.Progress, 40)
	testutil.AssertEqual(t, got.Message, "fetching videos")

	testutil.AssertNoError(t, s.Complete(job.ID, map[string]int{"videos": 25}))

	got, _ = s.Get(job.ID)
	testutil.AssertEqual(t, got.Status, StatusCompleted)
	testutil.AssertEqual(t, got.Progress, 100)
	if got.Result == nil {
		t.Error("expected a result on the completed job")
	}
	if got.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be set")
	}
}

func TestFail(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	job, err := s.Create(context.Background(), "instagram-analysis")
	testutil.AssertNoError(t, err)

	// Pending jobs can fail directly
	testutil.AssertNoError(t, s.Fail(job.ID, errors.New("profile not found")))

	got, _ := s.Get(job.ID)
	testutil.AssertEqual(t, got.Status, StatusFailed)
	testutil.AssertEqual(t, got.Error, "profile not found")
}

func TestInvalidTransitions(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	ctx := context.Background()

	job, _ := s.Create(ctx, "analysis")

	// Not running yet
	if err := s.Progress(job.ID, 10, ""); err == nil {
		t.Error("expected error updating progress on a pending job")
	}
	if err := s.Complete(job.ID, nil); err == nil {
		t.Error("expected error completing a pending job")
	}

	testutil.AssertNoError(t, s.Start(job.ID))
	if err := s.Start(job.ID); err == nil {
		t.Error("expected error starting a running job")
	}

	testutil.AssertNoError(t, s.Complete(job.ID, nil))
	if err := s.Fail(job.ID, errors.New("late")); err == nil {
		t.Error("expected error failing a completed job")
	}
	if err := s.Start(job.ID); err == nil {
		t.Error("expected error restarting a completed job")
	}
}

func TestProgressBounds(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	job, _ := s.Create(context.Background(), "analysis")
	s.Start(job.ID)

	if err := s.Progress(job.ID, -1, ""); err == nil {
		t.Error("expected error for negative progress")
	}
	if err := s.Progress(job.ID, 101, ""); err == nil {
		t.Error("expected error for progress above 100")
	}
	testutil.AssertNoError(t, s.Progress(job.ID, 0, ""))
	testutil.AssertNoError(t, s.Progress(job.ID, 100, ""))
}

func TestGetUnknown(t *testing.T) {
	s, _ := newTestStore(t, Config{})

	_, err := s.Get("missing")
	testutil.AssertError(t, err)
	if !errors.Is(err, bferrors.ErrNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s, clock := newTestStore(t, Config{})
	ctx := context.Background()

	first, _ := s.Create(ctx, "analysis")
	clock.Advance(time.Minute)
	second, _ := s.Create(ctx, "analysis")

	list := s.List()
	testutil.AssertEqual(t, len(list), 2)
	testutil.AssertEqual(t, list[0].ID, second.ID)
	testutil.AssertEqual(t, list[1].ID, first.ID)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	job, _ := s.Create(context.Background(), "analysis")

	if !s.Delete(job.ID) {
		t.Error("expected Delete to find the job")
	}
	if s.Delete(job.ID) {
		t.Error("expected Delete to miss a removed job")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	job, _ := s.Create(context.Background(), "analysis")

	// Mutating the snapshot must not touch stored state
	job.Status = StatusFailed
	job.Progress = 99

	got, err := s.Get(job.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Status, StatusPending)
	testutil.AssertEqual(t, got.Progress, 0)
}

func TestPruneExpired(t *testing.T) {
	s, clock := newTestStore(t, Config{TTL: time.Hour})
	ctx := context.Background()

	finished, _ := s.Create(ctx, "analysis")
	s.Start(finished.ID)
	s.Complete(finished.ID, nil)

	active, _ := s.Create(ctx, "analysis")
	s.Start(active.ID)

	// Nothing has aged out yet
	testutil.AssertEqual(t, s.PruneExpired(), 0)

	clock.Advance(2 * time.Hour)

	testutil.AssertEqual(t, s.PruneExpired(), 1)

	if _, err := s.Get(finished.ID); err == nil {
		t.Error("expected finished job to be pruned")
	}

	// Running jobs are never pruned regardless of age
	_, err := s.Get(active.ID)
	testutil.AssertNoError(t, err)
}

func TestMaxJobs(t *testing.T) {
	s, _ := newTestStore(t, Config{MaxJobs: 2})
	ctx := context.Background()

	_, err := s.Create(ctx, "analysis")
	testutil.AssertNoError(t, err)
	_, err = s.Create(ctx, "analysis")
	testutil.AssertNoError(t, err)

	_, err = s.Create(ctx, "analysis")
	testutil.AssertError(t, err)
	if !errors.Is(err, bferrors.ErrCapacityExceeded) {
		t.Errorf("expected capacity error, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t, Config{})
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			job, err := s.Create(ctx, "analysis")
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			if err := s.Start(job.ID); err != nil {
				t.Errorf("Start failed: %v", err)
				return
			}
			if err := s.Complete(job.ID, nil); err != nil {
				t.Errorf("Complete failed: %v", err)
			}
		}()
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(testutil.TestTimeout):
			t.Fatal("timed out waiting for workers")
		}
	}

	testutil.AssertEqual(t, len(s.List()), 10)
}
