package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
)

type prefStoreStub struct {
	prefs    model.SwipePreferences
	getErr   error
	upserted *model.SwipePreferences
}

func (s *prefStoreStub) Get(context.Context, int64) (model.SwipePreferences, error) {
	return s.prefs, s.getErr
}

func (s *prefStoreStub) Upsert(_ context.Context, prefs model.SwipePreferences) (model.SwipePreferences, error) {
	s.upserted = &prefs
	return prefs, nil
}

type statsStoreStub struct {
	stats model.SwipeStats
}

func (s *statsStoreStub) Get(context.Context, int64) (model.SwipeStats, error) {
	return s.stats, nil
}

type swipeStoreStub struct {
	records   []pgrepo.PendingLikeRecord
	lastLimit int
}

func (s *swipeStoreStub) ListPendingLikers(_ context.Context, _ int64, limit int) ([]pgrepo.PendingLikeRecord, error) {
	s.lastLimit = limit
	return s.records, nil
}

func newTestService(prefStore *prefStoreStub, stats *statsStoreStub, swipes *swipeStoreStub) *Service {
	svc := NewService(Dependencies{
		PreferenceStore: prefStore,
		StatsStore:      stats,
		SwipeStore:      swipes,
	}, Config{DefaultMinAge: 18, DefaultMaxAge: 99, DefaultMaxDistanceKM: 50})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	store := &prefStoreStub{getErr: pgrepo.ErrPreferencesNotFound}
	svc := newTestService(store, &statsStoreStub{}, &swipeStoreStub{})

	prefs, err := svc.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.UserID != 5 || prefs.MinAge != 18 || prefs.MaxAge != 99 || prefs.MaxDistanceKM != 50 {
		t.Fatalf("unexpected defaults: %+v", prefs)
	}
	if prefs.ShowMe != "all" || !prefs.ExcludeAlreadySwiped || !prefs.IsVisible {
		t.Fatalf("unexpected default flags: %+v", prefs)
	}
}

func TestReplaceValidatesAgeRange(t *testing.T) {
	store := &prefStoreStub{}
	svc := newTestService(store, &statsStoreStub{}, &swipeStoreStub{})

	cases := []model.SwipePreferences{
		{UserID: 5, MinAge: 17, MaxAge: 30, MaxDistanceKM: 10},
		{UserID: 5, MinAge: 30, MaxAge: 25, MaxDistanceKM: 10},
		{UserID: 5, MinAge: 20, MaxAge: 130, MaxDistanceKM: 10},
		{UserID: 5, MinAge: 20, MaxAge: 30, MaxDistanceKM: 0},
		{UserID: 5, MinAge: 20, MaxAge: 30, MaxDistanceKM: 900},
	}
	for i, bad := range cases {
		if _, err := svc.Replace(context.Background(), bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if store.upserted != nil {
		t.Fatalf("no invalid preferences may be stored, got %+v", store.upserted)
	}
}

func TestReplaceNormalizesAndStamps(t *testing.T) {
	store := &prefStoreStub{}
	svc := newTestService(store, &statsStoreStub{}, &swipeStoreStub{})

	saved, err := svc.Replace(context.Background(), model.SwipePreferences{
		UserID:        5,
		MinAge:        21,
		MaxAge:        34,
		MaxDistanceKM: 25,
		ShowMe:        "  Female ",
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if saved.ShowMe != "female" {
		t.Fatalf("expected normalized show_me, got %q", saved.ShowMe)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at stamp")
	}
	if store.upserted == nil || store.upserted.MinAge != 21 {
		t.Fatalf("expected full replace persisted, got %+v", store.upserted)
	}
}

func TestStatsPassThrough(t *testing.T) {
	stats := &statsStoreStub{stats: model.SwipeStats{UserID: 5, TotalSwipes: 12, SwipeStreak: 3}}
	svc := newTestService(&prefStoreStub{}, stats, &swipeStoreStub{})

	got, err := svc.Stats(context.Background(), 5)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.TotalSwipes != 12 || got.SwipeStreak != 3 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestPendingLikesCapsLimit(t *testing.T) {
	swipes := &swipeStoreStub{
		records: []pgrepo.PendingLikeRecord{
			{UserID: 9, Username: "ada", DisplayName: "Ada", IsSuperLike: true, LikedAt: time.Now()},
		},
	}
	svc := newTestService(&prefStoreStub{}, &statsStoreStub{}, swipes)

	items, err := svc.PendingLikes(context.Background(), 5, 10_000)
	if err != nil {
		t.Fatalf("pending likes: %v", err)
	}
	if swipes.lastLimit != pendingLikesLimit {
		t.Fatalf("expected limit capped at %d, got %d", pendingLikesLimit, swipes.lastLimit)
	}
	if len(items) != 1 || !items[0].IsSuperLike {
		t.Fatalf("unexpected pending likes: %+v", items)
	}
}
