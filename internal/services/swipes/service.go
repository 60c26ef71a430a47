package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/rules"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrTargetNotFound    = errors.New("target user not found")
	ErrNothingToUndo     = errors.New("no swipe to undo")
	ErrUndoMatched       = errors.New("cannot undo a swipe that formed a match")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many swipes, retry in %ds", e.RetryAfterSec)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type SwipeStore interface {
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, swiperID, targetID int64, action enums.SwipeAction, swipeContext string, now time.Time) (model.SwipeAction, bool, error)
	GetLastActiveBySwiper(ctx context.Context, tx pgx.Tx, swiperID int64) (model.SwipeAction, error)
	Deactivate(ctx context.Context, tx pgx.Tx, swipeID int64) error
}

type MatchStore interface {
	CreateIfMutualLike(ctx context.Context, tx pgx.Tx, swiperID, targetID int64, quality float64, commonInterests []string, now time.Time) (*model.Match, bool, error)
	HasActivePair(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
}

type StatsStore interface {
	RecordSwipe(ctx context.Context, tx pgx.Tx, userID int64, action enums.SwipeAction, now time.Time) error
	RecordLikeReceived(ctx context.Context, tx pgx.Tx, userID int64) error
	RecordMatch(ctx context.Context, tx pgx.Tx, userID int64, quality float64, initiated bool) error
}

type QueueStore interface {
	MarkShown(ctx context.Context, tx pgx.Tx, userID, candidateID int64) error
	GetScore(ctx context.Context, tx pgx.Tx, userID, candidateID int64) (float64, []string, bool, error)
}

type DirectoryStore interface {
	IsVisible(ctx context.Context, userID int64) (bool, error)
	GetViewerContext(ctx context.Context, userID int64) (pgrepo.ViewerContext, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

// Notifier delivers match and like events after the transaction commits.
// Implementations handle their own failures; delivery is best effort.
type Notifier interface {
	NotifyMatch(ctx context.Context, match *model.Match, initiatorID int64)
	NotifyLike(ctx context.Context, toUserID, fromUserID int64, superLike bool)
}

type Config struct {
	DefaultMaxDistanceKM int
}

type SwipeResult struct {
	Swipe        model.SwipeAction
	Created      bool
	Match        *model.Match
	MatchCreated bool
}

type UndoResult struct {
	Action   enums.SwipeAction
	TargetID int64
}

type Service struct {
	runner      TxRunner
	swipeStore  SwipeStore
	matchStore  MatchStore
	statsStore  StatsStore
	queueStore  QueueStore
	directory   DirectoryStore
	rateLimiter RateLimiter
	notifier    Notifier
	cfg         Config
	now         func() time.Time
}

type Dependencies struct {
	Runner      TxRunner
	SwipeStore  SwipeStore
	MatchStore  MatchStore
	StatsStore  StatsStore
	QueueStore  QueueStore
	Directory   DirectoryStore
	RateLimiter RateLimiter
	Notifier    Notifier
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultMaxDistanceKM <= 0 {
		cfg.DefaultMaxDistanceKM = 50
	}

	return &Service{
		runner:      deps.Runner,
		swipeStore:  deps.SwipeStore,
		matchStore:  deps.MatchStore,
		statsStore:  deps.StatsStore,
		queueStore:  deps.QueueStore,
		directory:   deps.Directory,
		rateLimiter: deps.RateLimiter,
		notifier:    deps.Notifier,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Swipe records the action, updates stats and queue state, and detects the
// mutual like inside one transaction. A repeated swipe on the same target is
// answered from the prior action without touching counters.
func (s *Service) Swipe(ctx context.Context, userID, targetID int64, action, swipeContext string) (SwipeResult, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return SwipeResult{}, ErrValidation
	}

	normalized, err := normalizeAction(action)
	if err != nil {
		return SwipeResult{}, err
	}

	if s.runner == nil || s.swipeStore == nil || s.matchStore == nil || s.statsStore == nil || s.directory == nil {
		return SwipeResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, userID)
		if err != nil {
			return SwipeResult{}, fmt.Errorf("apply swipe rate limiter: %w", err)
		}
		if !allowed {
			return SwipeResult{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	visible, err := s.directory.IsVisible(ctx, targetID)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("check target visibility: %w", err)
	}
	if !visible {
		return SwipeResult{}, ErrTargetNotFound
	}

	now := s.now().UTC()

	var fallbackQuality float64
	var fallbackCommon []string
	if normalized.CountsAsLike() {
		fallbackQuality, fallbackCommon, err = s.scorePair(ctx, userID, targetID, now)
		if err != nil {
			return SwipeResult{}, err
		}
	}

	var result SwipeResult
	if err := s.runner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		swipe, created, err := s.swipeStore.CreateIfAbsent(txCtx, tx, userID, targetID, normalized, swipeContext, now)
		if err != nil {
			return err
		}
		result.Swipe = swipe
		result.Created = created

		if created {
			if err := s.statsStore.RecordSwipe(txCtx, tx, userID, normalized, now); err != nil {
				return err
			}
			if s.queueStore != nil {
				if err := s.queueStore.MarkShown(txCtx, tx, userID, targetID); err != nil {
					return err
				}
			}
		}

		if !swipe.Action.CountsAsLike() {
			return nil
		}

		if created {
			if err := s.statsStore.RecordLikeReceived(txCtx, tx, targetID); err != nil {
				return err
			}
		}

		quality, common := fallbackQuality, fallbackCommon
		if s.queueStore != nil {
			queued, queuedCommon, found, err := s.queueStore.GetScore(txCtx, tx, userID, targetID)
			if err != nil {
				return err
			}
			if found {
				quality, common = queued, queuedCommon
			}
		}

		match, matchCreated, err := s.matchStore.CreateIfMutualLike(txCtx, tx, userID, targetID, quality, common, now)
		if err != nil {
			return err
		}
		result.Match = match
		result.MatchCreated = matchCreated

		if matchCreated {
			if err := s.statsStore.RecordMatch(txCtx, tx, userID, match.MatchQuality, true); err != nil {
				return err
			}
			if err := s.statsStore.RecordMatch(txCtx, tx, targetID, match.MatchQuality, false); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return SwipeResult{}, err
	}

	if s.notifier != nil {
		switch {
		case result.MatchCreated:
			s.notifier.NotifyMatch(ctx, result.Match, userID)
		case result.Created && result.Swipe.Action.CountsAsLike() && result.Match == nil:
			s.notifier.NotifyLike(ctx, targetID, userID, result.Swipe.Action == enums.SwipeActionSuperLike)
		}
	}

	return result, nil
}

// Undo deactivates the caller's most recent swipe. A like that already formed
// a match cannot be undone.
func (s *Service) Undo(ctx context.Context, userID int64) (UndoResult, error) {
	if userID <= 0 {
		return UndoResult{}, ErrValidation
	}
	if s.runner == nil || s.swipeStore == nil || s.matchStore == nil {
		return UndoResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	var result UndoResult
	if err := s.runner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		last, err := s.swipeStore.GetLastActiveBySwiper(txCtx, tx, userID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrSwipeNotFound) {
				return ErrNothingToUndo
			}
			return err
		}

		if last.Action.CountsAsLike() {
			matched, err := s.matchStore.HasActivePair(txCtx, tx, userID, last.TargetID)
			if err != nil {
				return err
			}
			if matched {
				return ErrUndoMatched
			}
		}

		if err := s.swipeStore.Deactivate(txCtx, tx, last.ID); err != nil {
			return err
		}

		result.Action = last.Action
		result.TargetID = last.TargetID
		return nil
	}); err != nil {
		return UndoResult{}, err
	}

	return result, nil
}

// scorePair recomputes match quality from the directory when the target never
// passed through the caller's queue (deep link, expired entry).
func (s *Service) scorePair(ctx context.Context, userID, targetID int64, now time.Time) (float64, []string, error) {
	viewer, err := s.directory.GetViewerContext(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("load swiper context: %w", err)
	}
	target, err := s.directory.GetViewerContext(ctx, targetID)
	if err != nil {
		return 0, nil, fmt.Errorf("load target context: %w", err)
	}

	var distance *float64
	if viewer.Lat != nil && viewer.Lon != nil && target.Lat != nil && target.Lon != nil {
		km := rules.HaversineKM(*viewer.Lat, *viewer.Lon, *target.Lat, *target.Lon)
		distance = &km
	}

	shared := rules.SharedInterests(viewer.Interests, target.Interests)
	compat, err := rules.CompatibilityScore(rules.ScoreInput{
		ViewerInterests:    viewer.Interests,
		CandidateInterests: target.Interests,
		DistanceKM:         distance,
		MaxDistanceKM:      s.cfg.DefaultMaxDistanceKM,
		Now:                now,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("score swipe pair: %w", err)
	}

	return rules.MatchQuality(compat, len(shared)), shared, nil
}

func normalizeAction(input string) (enums.SwipeAction, error) {
	value := strings.ToUpper(strings.TrimSpace(input))
	value = strings.ReplaceAll(value, "_", "")

	action := enums.SwipeAction(value)
	if !action.Valid() {
		return "", ErrUnsupportedAction
	}
	return action, nil
}
