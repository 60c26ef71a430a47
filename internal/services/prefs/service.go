package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
)

const (
	minAllowedAge      = 18
	maxAllowedAge      = 120
	maxDistanceCeiling = 500
	pendingLikesLimit  = 100
)

var ErrValidation = errors.New("validation error")

type PreferenceStore interface {
	Get(ctx context.Context, userID int64) (model.SwipePreferences, error)
	Upsert(ctx context.Context, prefs model.SwipePreferences) (model.SwipePreferences, error)
}

type StatsStore interface {
	Get(ctx context.Context, userID int64) (model.SwipeStats, error)
}

type SwipeStore interface {
	ListPendingLikers(ctx context.Context, userID int64, limit int) ([]pgrepo.PendingLikeRecord, error)
}

type Config struct {
	DefaultMinAge        int
	DefaultMaxAge        int
	DefaultMaxDistanceKM int
}

type PendingLike struct {
	UserID      int64
	Username    string
	DisplayName string
	IsSuperLike bool
	LikedAt     time.Time
}

type Service struct {
	prefStore  PreferenceStore
	statsStore StatsStore
	swipeStore SwipeStore
	cfg        Config
	now        func() time.Time
}

type Dependencies struct {
	PreferenceStore PreferenceStore
	StatsStore      StatsStore
	SwipeStore      SwipeStore
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultMinAge <= 0 {
		cfg.DefaultMinAge = 18
	}
	if cfg.DefaultMaxAge <= 0 {
		cfg.DefaultMaxAge = 99
	}
	if cfg.DefaultMaxDistanceKM <= 0 {
		cfg.DefaultMaxDistanceKM = 50
	}

	return &Service{
		prefStore:  deps.PreferenceStore,
		statsStore: deps.StatsStore,
		swipeStore: deps.SwipeStore,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Get returns the stored preferences, or the defaults when the user never
// saved any.
func (s *Service) Get(ctx context.Context, userID int64) (model.SwipePreferences, error) {
	if userID <= 0 {
		return model.SwipePreferences{}, ErrValidation
	}
	if s.prefStore == nil {
		return model.SwipePreferences{}, fmt.Errorf("preference store is nil")
	}

	prefs, err := s.prefStore.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPreferencesNotFound) {
			return s.defaults(userID), nil
		}
		return model.SwipePreferences{}, err
	}
	return prefs, nil
}

// Replace validates and stores the full preference set. Partial updates are
// not supported; the client always sends the complete document.
func (s *Service) Replace(ctx context.Context, prefs model.SwipePreferences) (model.SwipePreferences, error) {
	if prefs.UserID <= 0 {
		return model.SwipePreferences{}, ErrValidation
	}
	if s.prefStore == nil {
		return model.SwipePreferences{}, fmt.Errorf("preference store is nil")
	}

	if prefs.MinAge < minAllowedAge || prefs.MaxAge > maxAllowedAge || prefs.MinAge > prefs.MaxAge {
		return model.SwipePreferences{}, ErrValidation
	}
	if prefs.MaxDistanceKM <= 0 || prefs.MaxDistanceKM > maxDistanceCeiling {
		return model.SwipePreferences{}, ErrValidation
	}
	if prefs.MinCommonInterests < 0 {
		return model.SwipePreferences{}, ErrValidation
	}

	showMe := strings.ToLower(strings.TrimSpace(prefs.ShowMe))
	if showMe == "" {
		showMe = "all"
	}
	prefs.ShowMe = showMe
	prefs.UpdatedAt = s.now().UTC()

	return s.prefStore.Upsert(ctx, prefs)
}

// Stats returns the user's swipe counters. Users who never swiped get a zero
// row, not an error.
func (s *Service) Stats(ctx context.Context, userID int64) (model.SwipeStats, error) {
	if userID <= 0 {
		return model.SwipeStats{}, ErrValidation
	}
	if s.statsStore == nil {
		return model.SwipeStats{}, fmt.Errorf("stats store is nil")
	}

	return s.statsStore.Get(ctx, userID)
}

// PendingLikes lists users who liked the caller without a reciprocal decision
// yet, newest first, super-likes flagged.
func (s *Service) PendingLikes(ctx context.Context, userID int64, limit int) ([]PendingLike, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.swipeStore == nil {
		return nil, fmt.Errorf("swipe store is nil")
	}
	if limit <= 0 || limit > pendingLikesLimit {
		limit = pendingLikesLimit
	}

	records, err := s.swipeStore.ListPendingLikers(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]PendingLike, 0, len(records))
	for _, rec := range records {
		items = append(items, PendingLike{
			UserID:      rec.UserID,
			Username:    rec.Username,
			DisplayName: rec.DisplayName,
			IsSuperLike: rec.IsSuperLike,
			LikedAt:     rec.LikedAt,
		})
	}
	return items, nil
}

func (s *Service) defaults(userID int64) model.SwipePreferences {
	return model.SwipePreferences{
		UserID:               userID,
		MaxDistanceKM:        s.cfg.DefaultMaxDistanceKM,
		MinAge:               s.cfg.DefaultMinAge,
		MaxAge:               s.cfg.DefaultMaxAge,
		ShowMe:               "all",
		ExcludeAlreadySwiped: true,
		IsVisible:            true,
	}
}
