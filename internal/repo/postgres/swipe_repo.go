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

var ErrSwipeNotFound = errors.New("swipe not found")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type PendingLikeRecord struct {
	UserID      int64
	Username    string
	DisplayName string
	IsSuperLike bool
	LikedAt     time.Time
}

// CreateIfAbsent records a swipe unless an active one already exists for the
// pair. The partial unique index on (swiper_id, target_id) WHERE is_active is
// the only guard; on conflict the prior action is returned with created=false
// so the caller can answer idempotently.
func (r *SwipeRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, swiperID, targetID int64, action enums.SwipeAction, swipeContext string, now time.Time) (model.SwipeAction, bool, error) {
	if swiperID <= 0 || targetID <= 0 || !action.Valid() {
		return model.SwipeAction{}, false, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return model.SwipeAction{}, false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec model.SwipeAction
	err := tx.QueryRow(ctx, `
INSERT INTO swipe_actions (
	swiper_id,
	target_id,
	action,
	context,
	is_active,
	created_at
) VALUES ($1, $2, $3, $4, TRUE, $5)
ON CONFLICT (swiper_id, target_id) WHERE is_active DO NOTHING
RETURNING id, swiper_id, target_id, action, context, is_active, created_at
`, swiperID, targetID, string(action), swipeContext, now.UTC()).Scan(
		&rec.ID,
		&rec.SwiperID,
		&rec.TargetID,
		&rec.Action,
		&rec.Context,
		&rec.IsActive,
		&rec.CreatedAt,
	)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.SwipeAction{}, false, fmt.Errorf("create swipe action: %w", err)
	}

	prior, err := r.getActive(ctx, tx, swiperID, targetID)
	if err != nil {
		return model.SwipeAction{}, false, err
	}
	return prior, false, nil
}

func (r *SwipeRepo) getActive(ctx context.Context, tx pgx.Tx, swiperID, targetID int64) (model.SwipeAction, error) {
	var rec model.SwipeAction
	err := tx.QueryRow(ctx, `
SELECT id, swiper_id, target_id, action, context, is_active, created_at
FROM swipe_actions
WHERE swiper_id = $1 AND target_id = $2 AND is_active
LIMIT 1
`, swiperID, targetID).Scan(
		&rec.ID,
		&rec.SwiperID,
		&rec.TargetID,
		&rec.Action,
		&rec.Context,
		&rec.IsActive,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SwipeAction{}, ErrSwipeNotFound
		}
		return model.SwipeAction{}, fmt.Errorf("get active swipe action: %w", err)
	}

	return rec, nil
}

// HasActiveLike reports whether an active like or super-like from fromID to
// toID exists. Skips never qualify.
func (r *SwipeRepo) HasActiveLike(ctx context.Context, tx pgx.Tx, fromID, toID int64) (bool, error) {
	if fromID <= 0 || toID <= 0 {
		return false, fmt.Errorf("invalid like lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM swipe_actions
WHERE swiper_id = $1 AND target_id = $2 AND is_active
	AND action IN ('LIKE', 'SUPERLIKE')
LIMIT 1
`, fromID, toID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	return true, nil
}

func (r *SwipeRepo) GetLastActiveBySwiper(ctx context.Context, tx pgx.Tx, swiperID int64) (model.SwipeAction, error) {
	if swiperID <= 0 {
		return model.SwipeAction{}, fmt.Errorf("invalid swiper id")
	}
	if tx == nil {
		return model.SwipeAction{}, fmt.Errorf("transaction is required")
	}

	var rec model.SwipeAction
	err := tx.QueryRow(ctx, `
SELECT id, swiper_id, target_id, action, context, is_active, created_at
FROM swipe_actions
WHERE swiper_id = $1 AND is_active
ORDER BY created_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, swiperID).Scan(
		&rec.ID,
		&rec.SwiperID,
		&rec.TargetID,
		&rec.Action,
		&rec.Context,
		&rec.IsActive,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SwipeAction{}, ErrSwipeNotFound
		}
		return model.SwipeAction{}, fmt.Errorf("get last active swipe: %w", err)
	}

	return rec, nil
}

// Deactivate soft-retires a swipe action. Rows are never deleted.
func (r *SwipeRepo) Deactivate(ctx context.Context, tx pgx.Tx, swipeID int64) error {
	if swipeID <= 0 {
		return fmt.Errorf("invalid swipe id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE swipe_actions
SET is_active = FALSE
WHERE id = $1 AND is_active
`, swipeID)
	if err != nil {
		return fmt.Errorf("deactivate swipe action: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSwipeNotFound
	}
	return nil
}

// ListActiveTargets returns the ids the user has an active swipe against,
// for the queue builder's already-swiped exclusion.
func (r *SwipeRepo) ListActiveTargets(ctx context.Context, swiperID int64) ([]int64, error) {
	if swiperID <= 0 {
		return nil, fmt.Errorf("invalid swiper id")
	}
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT target_id
FROM swipe_actions
WHERE swiper_id = $1 AND is_active
`, swiperID)
	if err != nil {
		return nil, fmt.Errorf("list active swipe targets: %w", err)
	}
	defer rows.Close()

	var targets []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan swipe target: %w", err)
		}
		targets = append(targets, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate swipe targets: %w", rows.Err())
	}

	return targets, nil
}

// ListPendingLikers returns users holding an active like on userID without a
// match in either direction with them. Matched or blocked pairs are excluded.
func (r *SwipeRepo) ListPendingLikers(ctx context.Context, userID int64, limit int) ([]PendingLikeRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []PendingLikeRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	sa.swiper_id,
	COALESCE(u.username, ''),
	COALESCE(u.display_name, ''),
	sa.action = 'SUPERLIKE',
	sa.created_at
FROM swipe_actions sa
JOIN users u ON u.id = sa.swiper_id
WHERE
	sa.target_id = $1
	AND sa.is_active
	AND sa.action IN ('LIKE', 'SUPERLIKE')
	AND u.is_visible = TRUE
	AND NOT EXISTS (
		SELECT 1
		FROM swipe_preferences sp
		WHERE sp.user_id = sa.swiper_id AND sp.is_visible = FALSE
	)
	AND NOT EXISTS (
		SELECT 1
		FROM matches m
		WHERE m.user1_id = LEAST(sa.swiper_id, $1)
			AND m.user2_id = GREATEST(sa.swiper_id, $1)
			AND m.status IN ('active', 'blocked')
	)
ORDER BY sa.created_at DESC, sa.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending likers: %w", err)
	}
	defer rows.Close()

	items := make([]PendingLikeRecord, 0, limit)
	for rows.Next() {
		var rec PendingLikeRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.Username,
			&rec.DisplayName,
			&rec.IsSuperLike,
			&rec.LikedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending liker: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate pending likers: %w", rows.Err())
	}

	return items, nil
}
