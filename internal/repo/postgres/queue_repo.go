package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QueueRepo struct {
	pool *pgxpool.Pool
}

func NewQueueRepo(pool *pgxpool.Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

type QueueEntryRecord struct {
	UserID             int64
	CandidateID        int64
	CompatibilityScore float64
	CommonInterests    []string
	DistanceKM         *float64
	Priority           int
	IsShown            bool
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// ListUnseen returns servable entries: not shown, not expired, best first.
func (r *QueueRepo) ListUnseen(ctx context.Context, userID int64, now time.Time, limit int) ([]QueueEntryRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 20
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return []QueueEntryRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	user_id,
	candidate_id,
	compatibility_score,
	common_interests,
	distance_km,
	priority,
	is_shown,
	created_at,
	expires_at
FROM swipe_queue_entries
WHERE user_id = $1
	AND is_shown = FALSE
	AND expires_at > $2
ORDER BY priority DESC, compatibility_score DESC, candidate_id
LIMIT $3
`, userID, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list unseen queue entries: %w", err)
	}
	defer rows.Close()

	items := make([]QueueEntryRecord, 0, limit)
	for rows.Next() {
		var rec QueueEntryRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.CandidateID,
			&rec.CompatibilityScore,
			&rec.CommonInterests,
			&rec.DistanceKM,
			&rec.Priority,
			&rec.IsShown,
			&rec.CreatedAt,
			&rec.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate queue entries: %w", rows.Err())
	}

	return items, nil
}

func (r *QueueRepo) CountUnseen(ctx context.Context, userID int64, now time.Time) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM swipe_queue_entries
WHERE user_id = $1 AND is_shown = FALSE AND expires_at > $2
`, userID, now.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unseen queue entries: %w", err)
	}

	return count, nil
}

// Replace rebuilds the user's queue in one transaction: unshown entries are
// dropped and the fresh batch inserted. Shown rows stay so their candidates
// are not re-queued before expiry.
func (r *QueueRepo) Replace(ctx context.Context, userID int64, entries []QueueEntryRecord) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
DELETE FROM swipe_queue_entries
WHERE user_id = $1 AND is_shown = FALSE
`, userID); err != nil {
			return fmt.Errorf("clear unshown queue entries: %w", err)
		}

		for _, entry := range entries {
			common := entry.CommonInterests
			if common == nil {
				common = []string{}
			}
			if _, err := tx.Exec(txCtx, `
INSERT INTO swipe_queue_entries (
	user_id,
	candidate_id,
	compatibility_score,
	common_interests,
	distance_km,
	priority,
	is_shown,
	created_at,
	expires_at
) VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8)
ON CONFLICT (user_id, candidate_id) DO NOTHING
`,
				userID,
				entry.CandidateID,
				entry.CompatibilityScore,
				common,
				entry.DistanceKM,
				entry.Priority,
				entry.CreatedAt.UTC(),
				entry.ExpiresAt.UTC(),
			); err != nil {
				return fmt.Errorf("insert queue entry: %w", err)
			}
		}
		return nil
	})
}

// MarkShown retires the queue entry for a pair once a swipe lands. Missing
// entries are fine; swipes on long-expired queues are still valid.
func (r *QueueRepo) MarkShown(ctx context.Context, tx pgx.Tx, userID, candidateID int64) error {
	if userID <= 0 || candidateID <= 0 {
		return fmt.Errorf("invalid queue entry payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE swipe_queue_entries
SET is_shown = TRUE
WHERE user_id = $1 AND candidate_id = $2
`, userID, candidateID); err != nil {
		return fmt.Errorf("mark queue entry shown: %w", err)
	}

	return nil
}

// GetScore returns the stored compatibility data for a pair if a queue entry
// exists, shown or not. Used to seed match quality.
func (r *QueueRepo) GetScore(ctx context.Context, tx pgx.Tx, userID, candidateID int64) (float64, []string, bool, error) {
	if userID <= 0 || candidateID <= 0 {
		return 0, nil, false, fmt.Errorf("invalid queue score payload")
	}
	if tx == nil {
		return 0, nil, false, fmt.Errorf("transaction is required")
	}

	var score float64
	var common []string
	err := tx.QueryRow(ctx, `
SELECT compatibility_score, common_interests
FROM swipe_queue_entries
WHERE user_id = $1 AND candidate_id = $2
LIMIT 1
`, userID, candidateID).Scan(&score, &common)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("get queue entry score: %w", err)
	}

	return score, common, true, nil
}

func (r *QueueRepo) PurgeExpiredForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM swipe_queue_entries
WHERE user_id = $1 AND expires_at <= $2
`, userID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired queue entries for user: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *QueueRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM swipe_queue_entries
WHERE expires_at <= $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired queue entries: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListUsersBelowFloor finds visible users whose unseen queue fell under the
// floor, for the prewarm job.
func (r *QueueRepo) ListUsersBelowFloor(ctx context.Context, floor, limit int, now time.Time) ([]int64, error) {
	if floor < 0 {
		return nil, fmt.Errorf("invalid prewarm floor")
	}
	if limit <= 0 {
		limit = 100
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT p.user_id
FROM swipe_preferences p
WHERE p.is_visible = TRUE
	AND (
		SELECT COUNT(*)
		FROM swipe_queue_entries q
		WHERE q.user_id = p.user_id
			AND q.is_shown = FALSE
			AND q.expires_at > $1
	) < $2
ORDER BY p.user_id
LIMIT $3
`, now.UTC(), floor, limit)
	if err != nil {
		return nil, fmt.Errorf("list users below queue floor: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate users below queue floor: %w", rows.Err())
	}

	return ids, nil
}
