package queuemaint

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHandlePurgeExpiredPassesCurrentTime(t *testing.T) {
	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

	purger := &fakePurger{rows: 12}

	job := New(purger, nil, nil, 0, nil)
	job.now = func() time.Time { return now }

	if err := job.HandlePurgeExpired(context.Background(), nil); err != nil {
		t.Fatalf("handle purge: %v", err)
	}

	if !purger.lastNow.Equal(now) {
		t.Fatalf("unexpected purge cutoff: got %v want %v", purger.lastNow, now)
	}
}

func TestHandlePrewarmRebuildsShallowQueues(t *testing.T) {
	lister := &fakeLister{userIDs: []int64{11, 22, 33}}
	builder := &fakeBuilder{failFor: 22}

	job := New(nil, lister, builder, 5, nil)

	if err := job.HandlePrewarm(context.Background(), nil); err != nil {
		t.Fatalf("handle prewarm: %v", err)
	}

	if lister.lastFloor != 5 {
		t.Fatalf("unexpected floor: got %d want 5", lister.lastFloor)
	}
	if len(builder.built) != 3 {
		t.Fatalf("expected build attempts for all users, got %v", builder.built)
	}
	// one failed build must not stop the rest
	if builder.built[2] != 33 {
		t.Fatalf("expected user 33 rebuilt after failure, got %v", builder.built)
	}
}

func TestHandlePrewarmNoUsersIsNoop(t *testing.T) {
	lister := &fakeLister{}
	builder := &fakeBuilder{}

	job := New(nil, lister, builder, 5, nil)

	if err := job.HandlePrewarm(context.Background(), nil); err != nil {
		t.Fatalf("handle prewarm: %v", err)
	}
	if len(builder.built) != 0 {
		t.Fatalf("expected no builds, got %v", builder.built)
	}
}

type fakePurger struct {
	rows    int64
	lastNow time.Time
}

func (f *fakePurger) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.lastNow = now
	return f.rows, nil
}

type fakeLister struct {
	userIDs   []int64
	lastFloor int
}

func (f *fakeLister) ListUsersBelowFloor(_ context.Context, floor, _ int, _ time.Time) ([]int64, error) {
	f.lastFloor = floor
	return f.userIDs, nil
}

type fakeBuilder struct {
	failFor int64
	built   []int64
}

func (f *fakeBuilder) Build(_ context.Context, userID int64) error {
	f.built = append(f.built, userID)
	if f.failFor != 0 && userID == f.failFor {
		return errors.New("build failed")
	}
	return nil
}
