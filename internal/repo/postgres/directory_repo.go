package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

// DirectoryRepo is the engine's read-only window onto the platform's user
// store. It never writes to the users table.
type DirectoryRepo struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepo(pool *pgxpool.Pool) *DirectoryRepo {
	return &DirectoryRepo{pool: pool}
}

type CandidateQuery struct {
	ViewerID     int64
	ViewerLat    *float64
	ViewerLon    *float64
	MinAge       int
	MaxAge       int
	MaxDistance  int
	ShowMe       string
	ActiveSince  *time.Time
	ExcludeUsers []int64
	Limit        int
	Now          time.Time
}

type CandidateRecord struct {
	UserID          int64
	Username        string
	DisplayName     string
	Age             int
	Interests       []string
	DistanceKM      *float64
	LastActiveAt    time.Time
	PrimaryPhotoKey *string
}

func (r *DirectoryRepo) GetSummary(ctx context.Context, userID int64) (model.UserSummary, error) {
	if userID <= 0 {
		return model.UserSummary{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.UserSummary{}, ErrUserNotFound
	}

	var summary model.UserSummary
	err := r.pool.QueryRow(ctx, `
SELECT id, COALESCE(username, ''), COALESCE(display_name, '')
FROM users
WHERE id = $1
LIMIT 1
`, userID).Scan(&summary.ID, &summary.Username, &summary.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserSummary{}, ErrUserNotFound
		}
		return model.UserSummary{}, fmt.Errorf("get user summary: %w", err)
	}

	return summary, nil
}

// IsVisible reports whether the user exists and is discoverable. Used to
// reject swipes on unknown or hidden targets.
func (r *DirectoryRepo) IsVisible(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return false, nil
	}

	var visible bool
	err := r.pool.QueryRow(ctx, `
SELECT is_visible
FROM users
WHERE id = $1
LIMIT 1
`, userID).Scan(&visible)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user visibility: %w", err)
	}

	return visible, nil
}

// ListCandidates filters the candidate pool in SQL: visibility, age range,
// distance radius, gender preference, activity recency, plus explicit
// exclusions (already swiped, already matched). Scoring happens in-process.
func (r *DirectoryRepo) ListCandidates(ctx context.Context, q CandidateQuery) ([]CandidateRecord, error) {
	if q.ViewerID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	if r.pool == nil {
		return []CandidateRecord{}, nil
	}

	showMe := strings.ToLower(strings.TrimSpace(q.ShowMe))
	applyShowMe := showMe != "" && showMe != "all" && showMe != "any"
	applyRadius := q.ViewerLat != nil && q.ViewerLon != nil && q.MaxDistance > 0
	applyActivity := q.ActiveSince != nil
	excluded := q.ExcludeUsers
	if excluded == nil {
		excluded = []int64{}
	}
	var activeSince time.Time
	if q.ActiveSince != nil {
		activeSince = q.ActiveSince.UTC()
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	COALESCE(u.username, ''),
	COALESCE(u.display_name, ''),
	DATE_PART('year', AGE($2::timestamptz, u.birthdate::timestamp))::int AS age,
	COALESCE(u.interests, '{}'),
	CASE
		WHEN $5::boolean = TRUE AND u.lat IS NOT NULL AND u.lon IS NOT NULL
		THEN 6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
			COS(RADIANS($6::float8)) * COS(RADIANS(u.lat)) * COS(RADIANS(u.lon) - RADIANS($7::float8))
			+ SIN(RADIANS($6::float8)) * SIN(RADIANS(u.lat))
		)))
		ELSE NULL
	END AS distance_km,
	u.last_active_at,
	u.primary_photo_key
FROM users u
WHERE
	u.is_visible = TRUE
	AND u.id <> $1
	AND u.birthdate IS NOT NULL
	AND u.id <> ALL($11::bigint[])
	AND DATE_PART('year', AGE($2::timestamptz, u.birthdate::timestamp))::int BETWEEN $3 AND $4
	AND ($9::boolean = FALSE OR LOWER(u.gender) = $10)
	AND (
		$5::boolean = FALSE
		OR (
			u.lat IS NOT NULL
			AND u.lon IS NOT NULL
			AND (
				6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
					COS(RADIANS($6::float8)) * COS(RADIANS(u.lat)) * COS(RADIANS(u.lon) - RADIANS($7::float8))
					+ SIN(RADIANS($6::float8)) * SIN(RADIANS(u.lat))
				)))
			) <= $8::float8
		)
	)
	AND ($12::boolean = FALSE OR u.last_active_at >= $13::timestamptz)
	AND NOT EXISTS (
		SELECT 1
		FROM swipe_preferences sp
		WHERE sp.user_id = u.id AND sp.is_visible = FALSE
	)
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE m.user1_id = LEAST(u.id, $1)
			AND m.user2_id = GREATEST(u.id, $1)
			AND m.status IN ('active', 'blocked')
	)
ORDER BY u.last_active_at DESC, u.id
LIMIT $14
`,
		q.ViewerID,                // $1
		q.Now.UTC(),               // $2
		q.MinAge,                  // $3
		q.MaxAge,                  // $4
		applyRadius,               // $5
		floatOrZero(q.ViewerLat),  // $6
		floatOrZero(q.ViewerLon),  // $7
		float64(q.MaxDistance),    // $8
		applyShowMe,               // $9
		showMe,                    // $10
		excluded,                  // $11
		applyActivity,             // $12
		activeSince,               // $13
		q.Limit,                   // $14
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	items := make([]CandidateRecord, 0, q.Limit)
	for rows.Next() {
		var rec CandidateRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.Username,
			&rec.DisplayName,
			&rec.Age,
			&rec.Interests,
			&rec.DistanceKM,
			&rec.LastActiveAt,
			&rec.PrimaryPhotoKey,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	return items, nil
}

// ListProfilesByIDs hydrates queue entries with current profile data. Users
// that went invisible since the queue was built are silently dropped.
func (r *DirectoryRepo) ListProfilesByIDs(ctx context.Context, ids []int64, now time.Time) ([]CandidateRecord, error) {
	if len(ids) == 0 {
		return []CandidateRecord{}, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return []CandidateRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	COALESCE(u.username, ''),
	COALESCE(u.display_name, ''),
	DATE_PART('year', AGE($2::timestamptz, u.birthdate::timestamp))::int,
	COALESCE(u.interests, '{}'),
	u.last_active_at,
	u.primary_photo_key
FROM users u
WHERE u.id = ANY($1::bigint[])
	AND u.is_visible = TRUE
	AND u.birthdate IS NOT NULL
`, ids, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	items := make([]CandidateRecord, 0, len(ids))
	for rows.Next() {
		var rec CandidateRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.Username,
			&rec.DisplayName,
			&rec.Age,
			&rec.Interests,
			&rec.LastActiveAt,
			&rec.PrimaryPhotoKey,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate profiles: %w", rows.Err())
	}

	return items, nil
}

// GetViewerLocation returns the viewer's stored coordinates and interests for
// queue building. Nil coordinates mean distance cannot be applied.
func (r *DirectoryRepo) GetViewerContext(ctx context.Context, userID int64) (ViewerContext, error) {
	if userID <= 0 {
		return ViewerContext{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ViewerContext{}, ErrUserNotFound
	}

	var viewer ViewerContext
	err := r.pool.QueryRow(ctx, `
SELECT id, COALESCE(interests, '{}'), lat, lon, is_visible
FROM users
WHERE id = $1
LIMIT 1
`, userID).Scan(
		&viewer.UserID,
		&viewer.Interests,
		&viewer.Lat,
		&viewer.Lon,
		&viewer.IsVisible,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ViewerContext{}, ErrUserNotFound
		}
		return ViewerContext{}, fmt.Errorf("get viewer context: %w", err)
	}

	return viewer, nil
}

type ViewerContext struct {
	UserID    int64
	Interests []string
	Lat       *float64
	Lon       *float64
	IsVisible bool
}

func floatOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
