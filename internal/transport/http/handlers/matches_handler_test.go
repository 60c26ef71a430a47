package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	matchsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/matches"
)

type matchStoreForHandler struct {
	list       []pgrepo.MatchWithUserRecord
	match      *model.Match
	setErr     error
	lastStatus enums.MatchStatus
	updated    bool
}

func (s *matchStoreForHandler) ListActiveForUser(context.Context, int64, int) ([]pgrepo.MatchWithUserRecord, error) {
	return s.list, nil
}

func (s *matchStoreForHandler) GetByID(context.Context, int64) (*model.Match, error) {
	if s.match == nil {
		return nil, pgrepo.ErrMatchNotFound
	}
	return s.match, nil
}

func (s *matchStoreForHandler) SetConversationID(context.Context, int64, string) error {
	return s.setErr
}

func (s *matchStoreForHandler) UpdateStatusByUsers(_ context.Context, _ pgx.Tx, _, _ int64, status enums.MatchStatus) (bool, error) {
	s.lastStatus = status
	return s.updated, nil
}

func newMatchesHandler(store *matchStoreForHandler) *MatchesHandler {
	svc := matchsvc.NewService(matchsvc.Dependencies{
		Runner:     handlerTxRunner{},
		MatchStore: store,
	})
	return NewMatchesHandler(svc)
}

func withTestIdentity(req *http.Request, userID int64) *http.Request {
	return req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{
		UserID: userID,
		Role:   "user",
	}))
}

func TestMatchesHandlerListMapsRecords(t *testing.T) {
	matchedAt := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	store := &matchStoreForHandler{
		list: []pgrepo.MatchWithUserRecord{
			{
				Match: model.Match{
					ID:              7,
					User1ID:         101,
					User2ID:         202,
					Status:          enums.MatchStatusActive,
					MatchQuality:    0.91,
					CommonInterests: []string{"climbing"},
					MatchedAt:       matchedAt,
				},
				Other: model.UserSummary{ID: 202, Username: "sam", DisplayName: "Sam"},
			},
		},
	}
	h := newMatchesHandler(store)

	req := withTestIdentity(httptest.NewRequest(http.MethodGet, "/matches", nil), 101)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}

	var payload struct {
		Items []struct {
			ID          int64   `json:"id"`
			OtherUserID int64   `json:"other_user_id"`
			Username    string  `json:"username"`
			Quality     float64 `json:"match_quality"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 1 {
		t.Fatalf("expected one match, got %d", len(payload.Items))
	}
	item := payload.Items[0]
	if item.ID != 7 || item.OtherUserID != 202 || item.Username != "sam" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestMatchesHandlerAttachConversationConflict(t *testing.T) {
	store := &matchStoreForHandler{
		match:  &model.Match{ID: 7, User1ID: 101, User2ID: 202, Status: enums.MatchStatusActive},
		setErr: pgrepo.ErrConversationAssigned,
	}
	h := newMatchesHandler(store)

	rec := performAttachConversation(t, h, 101, "7", `{"conversation_id":"conv-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusConflict)
	}
}

func TestMatchesHandlerAttachConversationHidesForeignMatch(t *testing.T) {
	store := &matchStoreForHandler{
		match: &model.Match{ID: 7, User1ID: 303, User2ID: 404, Status: enums.MatchStatusActive},
	}
	h := newMatchesHandler(store)

	rec := performAttachConversation(t, h, 101, "7", `{"conversation_id":"conv-1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMatchesHandlerBlockSetsStatus(t *testing.T) {
	store := &matchStoreForHandler{updated: true}
	h := newMatchesHandler(store)

	body := bytes.NewReader([]byte(`{"target_id":202}`))
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/matches/block", body), 101)
	rec := httptest.NewRecorder()
	h.Block(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	if store.lastStatus != enums.MatchStatusBlocked {
		t.Fatalf("unexpected status written: got %q", store.lastStatus)
	}

	var payload struct {
		OK      bool `json:"ok"`
		Blocked bool `json:"blocked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.OK || !payload.Blocked {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func performAttachConversation(t *testing.T, h *MatchesHandler, userID int64, matchID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/matches/"+matchID+"/conversation", bytes.NewReader([]byte(body))), userID)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("matchID", matchID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.AttachConversation(rec, req)
	return rec
}
