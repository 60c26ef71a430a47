package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
	prefsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/prefs"
)

type prefStoreForHandler struct {
	stored map[int64]model.SwipePreferences
}

func (s *prefStoreForHandler) Get(_ context.Context, userID int64) (model.SwipePreferences, error) {
	prefs, ok := s.stored[userID]
	if !ok {
		return model.SwipePreferences{}, pgrepo.ErrPreferencesNotFound
	}
	return prefs, nil
}

func (s *prefStoreForHandler) Upsert(_ context.Context, prefs model.SwipePreferences) (model.SwipePreferences, error) {
	if s.stored == nil {
		s.stored = make(map[int64]model.SwipePreferences)
	}
	s.stored[prefs.UserID] = prefs
	return prefs, nil
}

type statsStoreForHandler struct {
	stats model.SwipeStats
}

func (s *statsStoreForHandler) Get(context.Context, int64) (model.SwipeStats, error) {
	return s.stats, nil
}

type pendingStoreForHandler struct {
	likes []pgrepo.PendingLikeRecord
}

func (s *pendingStoreForHandler) ListPendingLikers(context.Context, int64, int) ([]pgrepo.PendingLikeRecord, error) {
	return s.likes, nil
}

func newPrefsTestHandler(prefStore *prefStoreForHandler, stats *statsStoreForHandler, pending *pendingStoreForHandler) *PrefsHandler {
	svc := prefsvc.NewService(prefsvc.Dependencies{
		PreferenceStore: prefStore,
		StatsStore:      stats,
		SwipeStore:      pending,
	}, prefsvc.Config{})
	return NewPrefsHandler(svc)
}

func TestPrefsHandlerGetReturnsDefaultsWhenUnset(t *testing.T) {
	h := newPrefsTestHandler(&prefStoreForHandler{}, &statsStoreForHandler{}, &pendingStoreForHandler{})

	req := withTestIdentity(httptest.NewRequest(http.MethodGet, "/preferences", nil), 101)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		MinAge        int    `json:"min_age"`
		MaxAge        int    `json:"max_age"`
		MaxDistanceKM int    `json:"max_distance_km"`
		ShowMe        string `json:"show_me"`
		IsVisible     bool   `json:"is_visible"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.MinAge != 18 || payload.MaxAge != 99 || payload.MaxDistanceKM != 50 {
		t.Fatalf("unexpected defaults: %+v", payload)
	}
	if payload.ShowMe != "all" || !payload.IsVisible {
		t.Fatalf("unexpected defaults: %+v", payload)
	}
}

func TestPrefsHandlerPutRejectsBadAgeRange(t *testing.T) {
	h := newPrefsTestHandler(&prefStoreForHandler{}, &statsStoreForHandler{}, &pendingStoreForHandler{})

	body := bytes.NewReader([]byte(`{"min_age":30,"max_age":25,"max_distance_km":40}`))
	req := withTestIdentity(httptest.NewRequest(http.MethodPut, "/preferences", body), 101)
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPrefsHandlerPendingLikesMapsRecords(t *testing.T) {
	likedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pending := &pendingStoreForHandler{likes: []pgrepo.PendingLikeRecord{
		{UserID: 7, Username: "kai", DisplayName: "Kai", IsSuperLike: true, LikedAt: likedAt},
	}}
	h := newPrefsTestHandler(&prefStoreForHandler{}, &statsStoreForHandler{}, pending)

	req := withTestIdentity(httptest.NewRequest(http.MethodGet, "/likes/pending", nil), 101)
	rec := httptest.NewRecorder()
	h.PendingLikes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		Items []struct {
			UserID      int64 `json:"user_id"`
			IsSuperLike bool  `json:"is_super_like"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].UserID != 7 || !payload.Items[0].IsSuperLike {
		t.Fatalf("unexpected items: %+v", payload.Items)
	}
}
