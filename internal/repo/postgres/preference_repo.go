package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
)

var ErrPreferencesNotFound = errors.New("swipe preferences not found")

type PreferenceRepo struct {
	pool *pgxpool.Pool
}

func NewPreferenceRepo(pool *pgxpool.Pool) *PreferenceRepo {
	return &PreferenceRepo{pool: pool}
}

func (r *PreferenceRepo) Get(ctx context.Context, userID int64) (model.SwipePreferences, error) {
	if userID <= 0 {
		return model.SwipePreferences{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.SwipePreferences{}, ErrPreferencesNotFound
	}

	var prefs model.SwipePreferences
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	max_distance_km,
	min_age,
	max_age,
	COALESCE(show_me, 'all'),
	require_common_interests,
	min_common_interests,
	exclude_already_swiped,
	only_show_active_users,
	is_visible,
	is_premium,
	updated_at
FROM swipe_preferences
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&prefs.UserID,
		&prefs.MaxDistanceKM,
		&prefs.MinAge,
		&prefs.MaxAge,
		&prefs.ShowMe,
		&prefs.RequireCommonInterests,
		&prefs.MinCommonInterests,
		&prefs.ExcludeAlreadySwiped,
		&prefs.OnlyShowActiveUsers,
		&prefs.IsVisible,
		&prefs.IsPremium,
		&prefs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SwipePreferences{}, ErrPreferencesNotFound
		}
		return model.SwipePreferences{}, fmt.Errorf("get swipe preferences: %w", err)
	}

	return prefs, nil
}

// Upsert replaces the whole row; preferences have get/replace semantics.
func (r *PreferenceRepo) Upsert(ctx context.Context, prefs model.SwipePreferences) (model.SwipePreferences, error) {
	if prefs.UserID <= 0 {
		return model.SwipePreferences{}, fmt.Errorf("invalid preferences payload")
	}
	if r.pool == nil {
		return model.SwipePreferences{}, fmt.Errorf("postgres pool is nil")
	}

	var saved model.SwipePreferences
	err := r.pool.QueryRow(ctx, `
INSERT INTO swipe_preferences (
	user_id,
	max_distance_km,
	min_age,
	max_age,
	show_me,
	require_common_interests,
	min_common_interests,
	exclude_already_swiped,
	only_show_active_users,
	is_visible,
	is_premium,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	max_distance_km = EXCLUDED.max_distance_km,
	min_age = EXCLUDED.min_age,
	max_age = EXCLUDED.max_age,
	show_me = EXCLUDED.show_me,
	require_common_interests = EXCLUDED.require_common_interests,
	min_common_interests = EXCLUDED.min_common_interests,
	exclude_already_swiped = EXCLUDED.exclude_already_swiped,
	only_show_active_users = EXCLUDED.only_show_active_users,
	is_visible = EXCLUDED.is_visible,
	is_premium = EXCLUDED.is_premium,
	updated_at = NOW()
RETURNING
	user_id, max_distance_km, min_age, max_age, show_me,
	require_common_interests, min_common_interests, exclude_already_swiped,
	only_show_active_users, is_visible, is_premium, updated_at
`,
		prefs.UserID,
		prefs.MaxDistanceKM,
		prefs.MinAge,
		prefs.MaxAge,
		prefs.ShowMe,
		prefs.RequireCommonInterests,
		prefs.MinCommonInterests,
		prefs.ExcludeAlreadySwiped,
		prefs.OnlyShowActiveUsers,
		prefs.IsVisible,
		prefs.IsPremium,
	).Scan(
		&saved.UserID,
		&saved.MaxDistanceKM,
		&saved.MinAge,
		&saved.MaxAge,
		&saved.ShowMe,
		&saved.RequireCommonInterests,
		&saved.MinCommonInterests,
		&saved.ExcludeAlreadySwiped,
		&saved.OnlyShowActiveUsers,
		&saved.IsVisible,
		&saved.IsPremium,
		&saved.UpdatedAt,
	)
	if err != nil {
		return model.SwipePreferences{}, fmt.Errorf("upsert swipe preferences: %w", err)
	}

	return saved, nil
}
