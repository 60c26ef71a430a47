package swipes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/rules"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
)

type fakeRunner struct {
	calls int
}

func (r *fakeRunner) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	r.calls++
	return fn(ctx, nil)
}

type swipeStoreStub struct {
	created     bool
	last        model.SwipeAction
	lastErr     error
	createCalls int
	deactivated []int64
	lastAction  enums.SwipeAction
	lastContext string
}

func (s *swipeStoreStub) CreateIfAbsent(_ context.Context, _ pgx.Tx, swiperID, targetID int64, action enums.SwipeAction, swipeContext string, now time.Time) (model.SwipeAction, bool, error) {
	s.createCalls++
	s.lastAction = action
	s.lastContext = swipeContext
	if !s.created {
		// prior row wins, report it unchanged
		return s.last, false, nil
	}
	return model.SwipeAction{
		ID:        900,
		SwiperID:  swiperID,
		TargetID:  targetID,
		Action:    action,
		Context:   swipeContext,
		IsActive:  true,
		CreatedAt: now,
	}, true, nil
}

func (s *swipeStoreStub) GetLastActiveBySwiper(context.Context, pgx.Tx, int64) (model.SwipeAction, error) {
	return s.last, s.lastErr
}

func (s *swipeStoreStub) Deactivate(_ context.Context, _ pgx.Tx, swipeID int64) error {
	s.deactivated = append(s.deactivated, swipeID)
	return nil
}

type matchStoreStub struct {
	match      *model.Match
	created    bool
	hasPair    bool
	calls      int
	gotQuality float64
	gotCommon  []string
}

func (s *matchStoreStub) CreateIfMutualLike(_ context.Context, _ pgx.Tx, _, _ int64, quality float64, common []string, _ time.Time) (*model.Match, bool, error) {
	s.calls++
	s.gotQuality = quality
	s.gotCommon = common
	return s.match, s.created, nil
}

func (s *matchStoreStub) HasActivePair(context.Context, pgx.Tx, int64, int64) (bool, error) {
	return s.hasPair, nil
}

type statsStoreStub struct {
	swipes        int
	likesReceived []int64
	matchCalls    []struct {
		userID    int64
		initiated bool
	}
}

func (s *statsStoreStub) RecordSwipe(context.Context, pgx.Tx, int64, enums.SwipeAction, time.Time) error {
	s.swipes++
	return nil
}

func (s *statsStoreStub) RecordLikeReceived(_ context.Context, _ pgx.Tx, userID int64) error {
	s.likesReceived = append(s.likesReceived, userID)
	return nil
}

func (s *statsStoreStub) RecordMatch(_ context.Context, _ pgx.Tx, userID int64, _ float64, initiated bool) error {
	s.matchCalls = append(s.matchCalls, struct {
		userID    int64
		initiated bool
	}{userID, initiated})
	return nil
}

type queueStoreStub struct {
	shown      []int64
	score      float64
	common     []string
	scoreFound bool
}

func (s *queueStoreStub) MarkShown(_ context.Context, _ pgx.Tx, _, candidateID int64) error {
	s.shown = append(s.shown, candidateID)
	return nil
}

func (s *queueStoreStub) GetScore(context.Context, pgx.Tx, int64, int64) (float64, []string, bool, error) {
	return s.score, s.common, s.scoreFound, nil
}

type directoryStub struct {
	visible  map[int64]bool
	contexts map[int64]pgrepo.ViewerContext
}

func (s *directoryStub) IsVisible(_ context.Context, userID int64) (bool, error) {
	return s.visible[userID], nil
}

func (s *directoryStub) GetViewerContext(_ context.Context, userID int64) (pgrepo.ViewerContext, error) {
	ctxRec, ok := s.contexts[userID]
	if !ok {
		return pgrepo.ViewerContext{}, pgrepo.ErrUserNotFound
	}
	return ctxRec, nil
}

type rateStub struct {
	allowed    bool
	retryAfter int64
}

func (s rateStub) AllowSwipe(context.Context, int64) (int64, bool, error) {
	return s.retryAfter, s.allowed, nil
}

type notifierStub struct {
	matches   []int64
	likes     []int64
	superLike bool
}

func (s *notifierStub) NotifyMatch(_ context.Context, _ *model.Match, initiatorID int64) {
	s.matches = append(s.matches, initiatorID)
}

func (s *notifierStub) NotifyLike(_ context.Context, toUserID, _ int64, superLike bool) {
	s.likes = append(s.likes, toUserID)
	s.superLike = superLike
}

func newTestService(deps Dependencies) *Service {
	svc := NewService(deps, Config{DefaultMaxDistanceKM: 50})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func defaultDirectory() *directoryStub {
	return &directoryStub{
		visible: map[int64]bool{101: true, 202: true},
		contexts: map[int64]pgrepo.ViewerContext{
			101: {UserID: 101, Interests: []string{"Hiking", "Jazz"}},
			202: {UserID: 202, Interests: []string{"hiking", "cooking"}},
		},
	}
}

func TestSwipeLikeCreatesMatchOnReciprocalLike(t *testing.T) {
	match := &model.Match{ID: 7, User1ID: 101, User2ID: 202, Status: enums.MatchStatusActive, MatchQuality: 0.8}
	matches := &matchStoreStub{match: match, created: true}
	stats := &statsStoreStub{}
	notifier := &notifierStub{}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{created: true},
		MatchStore: matches,
		StatsStore: stats,
		QueueStore: &queueStoreStub{score: 0.8, common: []string{"hiking"}, scoreFound: true},
		Directory:  defaultDirectory(),
		Notifier:   notifier,
	})

	result, err := svc.Swipe(context.Background(), 101, 202, "like", "queue")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if !result.MatchCreated || result.Match == nil || result.Match.ID != 7 {
		t.Fatalf("expected new match in result, got %+v", result)
	}
	if stats.swipes != 1 {
		t.Fatalf("expected one swipe stat, got %d", stats.swipes)
	}
	if len(stats.likesReceived) != 1 || stats.likesReceived[0] != 202 {
		t.Fatalf("expected like-received stat for target, got %+v", stats.likesReceived)
	}
	if len(stats.matchCalls) != 2 {
		t.Fatalf("expected match stats for both sides, got %d", len(stats.matchCalls))
	}
	if !stats.matchCalls[0].initiated || stats.matchCalls[0].userID != 101 {
		t.Fatalf("expected initiated match stat for swiper, got %+v", stats.matchCalls[0])
	}
	if stats.matchCalls[1].initiated || stats.matchCalls[1].userID != 202 {
		t.Fatalf("expected received match stat for target, got %+v", stats.matchCalls[1])
	}
	if len(notifier.matches) != 1 || notifier.matches[0] != 101 {
		t.Fatalf("expected one match notification from initiator, got %+v", notifier.matches)
	}
	if len(notifier.likes) != 0 {
		t.Fatalf("expected no like notification when match formed, got %+v", notifier.likes)
	}
	if matches.gotQuality != 0.8 {
		t.Fatalf("expected queue score to seed match quality, got %v", matches.gotQuality)
	}
}

func TestSwipeDuplicateIsIdempotent(t *testing.T) {
	prior := model.SwipeAction{
		ID:       55,
		SwiperID: 101,
		TargetID: 202,
		Action:   enums.SwipeActionLike,
		IsActive: true,
	}
	existing := &model.Match{ID: 9, User1ID: 101, User2ID: 202, Status: enums.MatchStatusActive}
	stats := &statsStoreStub{}
	queue := &queueStoreStub{}
	notifier := &notifierStub{}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{created: false, last: prior},
		MatchStore: &matchStoreStub{match: existing, created: false},
		StatsStore: stats,
		QueueStore: queue,
		Directory:  defaultDirectory(),
		Notifier:   notifier,
	})

	result, err := svc.Swipe(context.Background(), 101, 202, "LIKE", "queue")
	if err != nil {
		t.Fatalf("duplicate swipe: %v", err)
	}
	if result.Created {
		t.Fatalf("expected created=false on duplicate swipe")
	}
	if result.Swipe.ID != 55 {
		t.Fatalf("expected prior swipe in result, got %+v", result.Swipe)
	}
	if result.MatchCreated {
		t.Fatalf("duplicate swipe must not report a new match")
	}
	if result.Match == nil || result.Match.ID != 9 {
		t.Fatalf("expected existing match in duplicate response, got %+v", result.Match)
	}
	if stats.swipes != 0 || len(stats.likesReceived) != 0 || len(stats.matchCalls) != 0 {
		t.Fatalf("duplicate swipe must not touch stats: %+v", stats)
	}
	if len(queue.shown) != 0 {
		t.Fatalf("duplicate swipe must not mark queue entries, got %+v", queue.shown)
	}
	if len(notifier.matches) != 0 || len(notifier.likes) != 0 {
		t.Fatalf("duplicate swipe must not notify, got %+v %+v", notifier.matches, notifier.likes)
	}
}

func TestSwipeLikeReturnsExistingMatchWithoutRestating(t *testing.T) {
	// A concurrent reciprocal like can win the match insert; the detector then
	// hands back the existing row with created=false.
	existing := &model.Match{ID: 9, User1ID: 101, User2ID: 202, Status: enums.MatchStatusActive, MatchQuality: 0.8}
	matches := &matchStoreStub{match: existing, created: false}
	stats := &statsStoreStub{}
	notifier := &notifierStub{}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{created: true},
		MatchStore: matches,
		StatsStore: stats,
		QueueStore: &queueStoreStub{score: 0.8, scoreFound: true},
		Directory:  defaultDirectory(),
		Notifier:   notifier,
	})

	result, err := svc.Swipe(context.Background(), 101, 202, "like", "queue")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if !result.Created {
		t.Fatalf("expected fresh swipe row, got %+v", result)
	}
	if result.MatchCreated {
		t.Fatalf("lost insert race must not report a new match")
	}
	if result.Match == nil || result.Match.ID != 9 {
		t.Fatalf("expected existing match in result, got %+v", result.Match)
	}
	if len(stats.matchCalls) != 0 {
		t.Fatalf("existing match must not add match stats again, got %+v", stats.matchCalls)
	}
	if stats.swipes != 1 || len(stats.likesReceived) != 1 {
		t.Fatalf("fresh swipe stats expected, got %+v", stats)
	}
	if len(notifier.matches) != 0 || len(notifier.likes) != 0 {
		t.Fatalf("no notifications expected for an existing match, got %+v %+v", notifier.matches, notifier.likes)
	}
}

func TestSwipeRejectsSelfAndBadAction(t *testing.T) {
	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{},
		MatchStore: &matchStoreStub{},
		StatsStore: &statsStoreStub{},
		Directory:  defaultDirectory(),
	})

	if _, err := svc.Swipe(context.Background(), 101, 101, "LIKE", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self swipe, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 101, 202, "WAVE", ""); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestSwipeUnknownTargetRejected(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(Dependencies{
		Runner:     runner,
		SwipeStore: &swipeStoreStub{created: true},
		MatchStore: &matchStoreStub{},
		StatsStore: &statsStoreStub{},
		Directory:  &directoryStub{visible: map[int64]bool{}},
	})

	if _, err := svc.Swipe(context.Background(), 101, 999, "LIKE", ""); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("no transaction should run for unknown target, got %d", runner.calls)
	}
}

func TestSwipeSkipNeverMatches(t *testing.T) {
	matches := &matchStoreStub{}
	stats := &statsStoreStub{}
	notifier := &notifierStub{}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{created: true},
		MatchStore: matches,
		StatsStore: stats,
		QueueStore: &queueStoreStub{},
		Directory:  defaultDirectory(),
		Notifier:   notifier,
	})

	result, err := svc.Swipe(context.Background(), 101, 202, "skip", "queue")
	if err != nil {
		t.Fatalf("skip swipe: %v", err)
	}
	if result.Match != nil || result.MatchCreated {
		t.Fatalf("skip must never form a match, got %+v", result)
	}
	if matches.calls != 0 {
		t.Fatalf("skip must not reach the match store, got %d calls", matches.calls)
	}
	if stats.swipes != 1 {
		t.Fatalf("skip still counts as a swipe, got %d", stats.swipes)
	}
	if len(stats.likesReceived) != 0 {
		t.Fatalf("skip must not record a received like, got %+v", stats.likesReceived)
	}
	if len(notifier.likes) != 0 || len(notifier.matches) != 0 {
		t.Fatalf("skip must not notify anyone")
	}
}

func TestSwipeRateLimited(t *testing.T) {
	svc := newTestService(Dependencies{
		Runner:      &fakeRunner{},
		SwipeStore:  &swipeStoreStub{created: true},
		MatchStore:  &matchStoreStub{},
		StatsStore:  &statsStoreStub{},
		Directory:   defaultDirectory(),
		RateLimiter: rateStub{allowed: false, retryAfter: 30},
	})

	_, err := svc.Swipe(context.Background(), 101, 202, "LIKE", "")
	var tooFast TooFastError
	if !errors.As(err, &tooFast) {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if tooFast.RetryAfterSec != 30 {
		t.Fatalf("unexpected retry_after: %d", tooFast.RetryAfterSec)
	}
}

func TestSwipeFallbackScoreWhenNotQueued(t *testing.T) {
	directory := defaultDirectory()
	matches := &matchStoreStub{match: nil, created: false}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{created: true},
		MatchStore: matches,
		StatsStore: &statsStoreStub{},
		QueueStore: &queueStoreStub{scoreFound: false},
		Directory:  directory,
		Notifier:   &notifierStub{},
	})

	if _, err := svc.Swipe(context.Background(), 101, 202, "SUPER_LIKE", "profile"); err != nil {
		t.Fatalf("swipe: %v", err)
	}

	shared := rules.SharedInterests([]string{"Hiking", "Jazz"}, []string{"hiking", "cooking"})
	if len(matches.gotCommon) != len(shared) {
		t.Fatalf("expected recomputed common interests %v, got %v", shared, matches.gotCommon)
	}
	if matches.gotQuality <= 0 || matches.gotQuality > 1 {
		t.Fatalf("expected recomputed quality in (0,1], got %v", matches.gotQuality)
	}
}

func TestSwipeLikeNotifiesTargetWithoutMatch(t *testing.T) {
	notifier := &notifierStub{}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{created: true},
		MatchStore: &matchStoreStub{match: nil, created: false},
		StatsStore: &statsStoreStub{},
		QueueStore: &queueStoreStub{score: 0.4, scoreFound: true},
		Directory:  defaultDirectory(),
		Notifier:   notifier,
	})

	if _, err := svc.Swipe(context.Background(), 101, 202, "superlike", "queue"); err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if len(notifier.likes) != 1 || notifier.likes[0] != 202 {
		t.Fatalf("expected like notification for target, got %+v", notifier.likes)
	}
	if !notifier.superLike {
		t.Fatalf("expected super-like flag in notification")
	}
	if len(notifier.matches) != 0 {
		t.Fatalf("no match notification expected, got %+v", notifier.matches)
	}
}

func TestUndoDeactivatesLastSwipe(t *testing.T) {
	last := model.SwipeAction{ID: 42, SwiperID: 101, TargetID: 202, Action: enums.SwipeActionSkip, IsActive: true}
	store := &swipeStoreStub{last: last}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: store,
		MatchStore: &matchStoreStub{},
		StatsStore: &statsStoreStub{},
		Directory:  defaultDirectory(),
	})

	result, err := svc.Undo(context.Background(), 101)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if result.Action != enums.SwipeActionSkip || result.TargetID != 202 {
		t.Fatalf("unexpected undo result: %+v", result)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != 42 {
		t.Fatalf("expected swipe 42 deactivated, got %+v", store.deactivated)
	}
}

func TestUndoNothingToUndo(t *testing.T) {
	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: &swipeStoreStub{lastErr: pgrepo.ErrSwipeNotFound},
		MatchStore: &matchStoreStub{},
		StatsStore: &statsStoreStub{},
		Directory:  defaultDirectory(),
	})

	if _, err := svc.Undo(context.Background(), 101); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestUndoBlockedAfterMatch(t *testing.T) {
	last := model.SwipeAction{ID: 42, SwiperID: 101, TargetID: 202, Action: enums.SwipeActionLike, IsActive: true}
	store := &swipeStoreStub{last: last}

	svc := newTestService(Dependencies{
		Runner:     &fakeRunner{},
		SwipeStore: store,
		MatchStore: &matchStoreStub{hasPair: true},
		StatsStore: &statsStoreStub{},
		Directory:  defaultDirectory(),
	})

	if _, err := svc.Undo(context.Background(), 101); !errors.Is(err, ErrUndoMatched) {
		t.Fatalf("expected ErrUndoMatched, got %v", err)
	}
	if len(store.deactivated) != 0 {
		t.Fatalf("matched like must stay active, got %+v", store.deactivated)
	}
}
