package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/rules"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
)

const (
	candidateOverfetch = 3
	likersScanLimit    = 200
	priorityLikedYou   = 1
)

var ErrValidation = errors.New("validation error")

type DirectoryStore interface {
	GetViewerContext(ctx context.Context, userID int64) (pgrepo.ViewerContext, error)
	ListCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]pgrepo.CandidateRecord, error)
	ListProfilesByIDs(ctx context.Context, ids []int64, now time.Time) ([]pgrepo.CandidateRecord, error)
}

type PreferenceStore interface {
	Get(ctx context.Context, userID int64) (model.SwipePreferences, error)
}

type SwipeStore interface {
	ListActiveTargets(ctx context.Context, swiperID int64) ([]int64, error)
	ListPendingLikers(ctx context.Context, userID int64, limit int) ([]pgrepo.PendingLikeRecord, error)
}

type QueueStore interface {
	ListUnseen(ctx context.Context, userID int64, now time.Time, limit int) ([]pgrepo.QueueEntryRecord, error)
	CountUnseen(ctx context.Context, userID int64, now time.Time) (int, error)
	Replace(ctx context.Context, userID int64, entries []pgrepo.QueueEntryRecord) error
	PurgeExpiredForUser(ctx context.Context, userID int64, now time.Time) (int64, error)
}

type PhotoURLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	QueueSize            int
	QueueTTL             time.Duration
	DefaultMinAge        int
	DefaultMaxAge        int
	DefaultMaxDistanceKM int
	ActiveWithin         time.Duration
	PhotoURLTTL          time.Duration
}

type Candidate struct {
	UserID             int64
	Username           string
	DisplayName        string
	Age                int
	CompatibilityScore float64
	CommonInterests    []string
	DistanceKM         *float64
	PhotoURL           *string
	Priority           int
}

type Service struct {
	directory DirectoryStore
	prefStore PreferenceStore
	swipes    SwipeStore
	queue     QueueStore
	photoSign PhotoURLSigner
	cfg       Config
	now       func() time.Time
}

type Dependencies struct {
	Directory   DirectoryStore
	Preferences PreferenceStore
	Swipes      SwipeStore
	Queue       QueueStore
	PhotoSigner PhotoURLSigner
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 20
	}
	if cfg.QueueTTL <= 0 {
		cfg.QueueTTL = 24 * time.Hour
	}
	if cfg.DefaultMinAge <= 0 {
		cfg.DefaultMinAge = 18
	}
	if cfg.DefaultMaxAge <= 0 {
		cfg.DefaultMaxAge = 99
	}
	if cfg.DefaultMaxDistanceKM <= 0 {
		cfg.DefaultMaxDistanceKM = 50
	}
	if cfg.ActiveWithin <= 0 {
		cfg.ActiveWithin = 72 * time.Hour
	}
	if cfg.PhotoURLTTL <= 0 {
		cfg.PhotoURLTTL = 5 * time.Minute
	}

	return &Service{
		directory: deps.Directory,
		prefStore: deps.Preferences,
		swipes:    deps.Swipes,
		queue:     deps.Queue,
		photoSign: deps.PhotoSigner,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Get serves the caller's potential-match queue, rebuilding it when no
// servable entries remain.
func (s *Service) Get(ctx context.Context, userID int64, limit int) ([]Candidate, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.directory == nil || s.prefStore == nil || s.swipes == nil || s.queue == nil {
		return nil, fmt.Errorf("queue dependencies are not configured")
	}
	if limit <= 0 || limit > s.cfg.QueueSize {
		limit = s.cfg.QueueSize
	}

	now := s.now().UTC()

	if _, err := s.queue.PurgeExpiredForUser(ctx, userID, now); err != nil {
		return nil, err
	}

	entries, err := s.queue.ListUnseen(ctx, userID, now, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if err := s.Build(ctx, userID); err != nil {
			return nil, err
		}
		entries, err = s.queue.ListUnseen(ctx, userID, now, limit)
		if err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 {
		return []Candidate{}, nil
	}

	return s.hydrate(ctx, entries, now)
}

// Build recomputes the stored queue for the user from the current candidate
// pool and preferences. Shown entries are kept so served candidates do not
// reappear after a rebuild.
func (s *Service) Build(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.directory == nil || s.prefStore == nil || s.swipes == nil || s.queue == nil {
		return fmt.Errorf("queue dependencies are not configured")
	}

	now := s.now().UTC()

	viewer, err := s.directory.GetViewerContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("load queue viewer: %w", err)
	}

	prefs, err := s.prefStore.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgrepo.ErrPreferencesNotFound) {
			return fmt.Errorf("load queue preferences: %w", err)
		}
		prefs = s.defaultPreferences(userID)
	}

	// Users who turned visibility off do not participate in discovery at
	// all: nothing is built for them and stale unshown entries are cleared.
	if !viewer.IsVisible || !prefs.IsVisible {
		if err := s.queue.Replace(ctx, userID, nil); err != nil {
			return fmt.Errorf("clear queue entries: %w", err)
		}
		return nil
	}

	query := pgrepo.CandidateQuery{
		ViewerID:    userID,
		ViewerLat:   viewer.Lat,
		ViewerLon:   viewer.Lon,
		MinAge:      prefs.MinAge,
		MaxAge:      prefs.MaxAge,
		MaxDistance: prefs.MaxDistanceKM,
		ShowMe:      prefs.ShowMe,
		Limit:       s.cfg.QueueSize * candidateOverfetch,
		Now:         now,
	}
	if prefs.OnlyShowActiveUsers {
		activeSince := now.Add(-s.cfg.ActiveWithin)
		query.ActiveSince = &activeSince
	}
	if prefs.ExcludeAlreadySwiped {
		swiped, err := s.swipes.ListActiveTargets(ctx, userID)
		if err != nil {
			return fmt.Errorf("load swiped targets: %w", err)
		}
		query.ExcludeUsers = swiped
	}

	candidates, err := s.directory.ListCandidates(ctx, query)
	if err != nil {
		return fmt.Errorf("list queue candidates: %w", err)
	}

	likedBy, err := s.likerSet(ctx, userID)
	if err != nil {
		return err
	}

	entries := make([]pgrepo.QueueEntryRecord, 0, len(candidates))
	for _, candidate := range candidates {
		shared := rules.SharedInterests(viewer.Interests, candidate.Interests)
		if prefs.RequireCommonInterests && len(shared) < max(prefs.MinCommonInterests, 1) {
			continue
		}

		score, err := rules.CompatibilityScore(rules.ScoreInput{
			ViewerInterests:     viewer.Interests,
			CandidateInterests:  candidate.Interests,
			DistanceKM:          candidate.DistanceKM,
			MaxDistanceKM:       prefs.MaxDistanceKM,
			CandidateLastActive: candidate.LastActiveAt,
			Now:                 now,
		})
		if err != nil {
			// a candidate the scorer cannot handle is skipped, not fatal
			continue
		}

		priority := 0
		if likedBy[candidate.UserID] {
			priority = priorityLikedYou
		}

		entries = append(entries, pgrepo.QueueEntryRecord{
			UserID:             userID,
			CandidateID:        candidate.UserID,
			CompatibilityScore: score,
			CommonInterests:    shared,
			DistanceKM:         candidate.DistanceKM,
			Priority:           priority,
			CreatedAt:          now,
			ExpiresAt:          now.Add(s.cfg.QueueTTL),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].CompatibilityScore > entries[j].CompatibilityScore
	})
	if len(entries) > s.cfg.QueueSize {
		entries = entries[:s.cfg.QueueSize]
	}

	if err := s.queue.Replace(ctx, userID, entries); err != nil {
		return fmt.Errorf("store queue entries: %w", err)
	}

	return nil
}

// Depth reports how many servable entries the user has left.
func (s *Service) Depth(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, ErrValidation
	}
	if s.queue == nil {
		return 0, fmt.Errorf("queue dependencies are not configured")
	}
	return s.queue.CountUnseen(ctx, userID, s.now().UTC())
}

func (s *Service) hydrate(ctx context.Context, entries []pgrepo.QueueEntryRecord, now time.Time) ([]Candidate, error) {
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.CandidateID)
	}

	profiles, err := s.directory.ListProfilesByIDs(ctx, ids, now)
	if err != nil {
		return nil, fmt.Errorf("hydrate queue entries: %w", err)
	}
	byID := make(map[int64]pgrepo.CandidateRecord, len(profiles))
	for _, profile := range profiles {
		byID[profile.UserID] = profile
	}

	items := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		profile, ok := byID[entry.CandidateID]
		if !ok {
			continue
		}

		item := Candidate{
			UserID:             profile.UserID,
			Username:           profile.Username,
			DisplayName:        profile.DisplayName,
			Age:                profile.Age,
			CompatibilityScore: entry.CompatibilityScore,
			CommonInterests:    entry.CommonInterests,
			DistanceKM:         entry.DistanceKM,
			Priority:           entry.Priority,
		}
		if s.photoSign != nil && profile.PrimaryPhotoKey != nil && *profile.PrimaryPhotoKey != "" {
			url, err := s.photoSign.PresignGet(ctx, *profile.PrimaryPhotoKey, s.cfg.PhotoURLTTL)
			if err == nil {
				item.PhotoURL = &url
			}
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *Service) likerSet(ctx context.Context, userID int64) (map[int64]bool, error) {
	likers, err := s.swipes.ListPendingLikers(ctx, userID, likersScanLimit)
	if err != nil {
		return nil, fmt.Errorf("load pending likers: %w", err)
	}

	set := make(map[int64]bool, len(likers))
	for _, liker := range likers {
		set[liker.UserID] = true
	}
	return set, nil
}

func (s *Service) defaultPreferences(userID int64) model.SwipePreferences {
	return model.SwipePreferences{
		UserID:               userID,
		MaxDistanceKM:        s.cfg.DefaultMaxDistanceKM,
		MinAge:               s.cfg.DefaultMinAge,
		MaxAge:               s.cfg.DefaultMaxAge,
		ShowMe:               "all",
		ExcludeAlreadySwiped: true,
		OnlyShowActiveUsers:  false,
		IsVisible:            true,
	}
}
