package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) Get(ctx context.Context, userID int64) (model.SwipeStats, error) {
	if userID <= 0 {
		return model.SwipeStats{}, fmt.Errorf("invalid user id")
	}
	stats := model.SwipeStats{UserID: userID}
	if r.pool == nil {
		return stats, nil
	}

	err := r.pool.QueryRow(ctx, `
SELECT
	total_swipes,
	total_likes,
	total_skips,
	total_matches,
	likes_received,
	matches_received,
	average_match_quality,
	swipe_streak,
	best_match_quality,
	last_swipe_date
FROM swipe_stats
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&stats.TotalSwipes,
		&stats.TotalLikes,
		&stats.TotalSkips,
		&stats.TotalMatches,
		&stats.LikesReceived,
		&stats.MatchesReceived,
		&stats.AverageMatchQuality,
		&stats.SwipeStreak,
		&stats.BestMatchQuality,
		&stats.LastSwipeDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats, nil
		}
		return model.SwipeStats{}, fmt.Errorf("get swipe stats: %w", err)
	}

	return stats, nil
}

// RecordSwipe bumps the swiper's counters for a freshly recorded action.
// The streak advances on consecutive calendar days and resets after a gap.
func (r *StatsRepo) RecordSwipe(ctx context.Context, tx pgx.Tx, userID int64, action enums.SwipeAction, now time.Time) error {
	if userID <= 0 || !action.Valid() {
		return fmt.Errorf("invalid stats swipe payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	likeDelta := 0
	skipDelta := 0
	if action.CountsAsLike() {
		likeDelta = 1
	} else {
		skipDelta = 1
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO swipe_stats (
	user_id,
	total_swipes,
	total_likes,
	total_skips,
	swipe_streak,
	last_swipe_date
) VALUES ($1, 1, $2, $3, 1, $4::date)
ON CONFLICT (user_id) DO UPDATE SET
	total_swipes = swipe_stats.total_swipes + 1,
	total_likes = swipe_stats.total_likes + $2,
	total_skips = swipe_stats.total_skips + $3,
	swipe_streak = CASE
		WHEN swipe_stats.last_swipe_date = $4::date THEN swipe_stats.swipe_streak
		WHEN swipe_stats.last_swipe_date = $4::date - 1 THEN swipe_stats.swipe_streak + 1
		ELSE 1
	END,
	last_swipe_date = $4::date
`, userID, likeDelta, skipDelta, now.UTC().Format("2006-01-02")); err != nil {
		return fmt.Errorf("record swipe stats: %w", err)
	}

	return nil
}

func (r *StatsRepo) RecordLikeReceived(ctx context.Context, tx pgx.Tx, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO swipe_stats (user_id, likes_received)
VALUES ($1, 1)
ON CONFLICT (user_id) DO UPDATE SET
	likes_received = swipe_stats.likes_received + 1
`, userID); err != nil {
		return fmt.Errorf("record like received: %w", err)
	}

	return nil
}

// RecordMatch updates one participant's match counters inside the match
// transaction. initiated marks the side whose swipe completed the pair; the
// other side "received" the match.
func (r *StatsRepo) RecordMatch(ctx context.Context, tx pgx.Tx, userID int64, quality float64, initiated bool) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	receivedDelta := 0
	if !initiated {
		receivedDelta = 1
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO swipe_stats (
	user_id,
	total_matches,
	matches_received,
	average_match_quality,
	best_match_quality
) VALUES ($1, 1, $2, $3, $3)
ON CONFLICT (user_id) DO UPDATE SET
	average_match_quality = (swipe_stats.average_match_quality * swipe_stats.total_matches + $3)
		/ (swipe_stats.total_matches + 1),
	total_matches = swipe_stats.total_matches + 1,
	matches_received = swipe_stats.matches_received + $2,
	best_match_quality = GREATEST(swipe_stats.best_match_quality, $3)
`, userID, receivedDelta, quality); err != nil {
		return fmt.Errorf("record match stats: %w", err)
	}

	return nil
}
