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
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/rules"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrConversationAssigned = errors.New("conversation already assigned")
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

type MatchWithUserRecord struct {
	Match model.Match
	Other model.UserSummary
}

// CreateIfMutualLike checks for the reciprocal active like and, when present,
// creates the match under the partial unique index on the canonical pair.
// When a concurrent swipe already created it the existing row is returned;
// both racing sides observe exactly one match. Returns nil when no reciprocal
// like exists.
func (r *MatchRepo) CreateIfMutualLike(ctx context.Context, tx pgx.Tx, swiperID, targetID int64, quality float64, commonInterests []string, now time.Time) (*model.Match, bool, error) {
	if swiperID <= 0 || targetID <= 0 || swiperID == targetID {
		return nil, false, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return nil, false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM swipe_actions
WHERE swiper_id = $1 AND target_id = $2 AND is_active
	AND action IN ('LIKE', 'SUPERLIKE')
LIMIT 1
`, targetID, swiperID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	user1, user2 := rules.CanonicalPair(swiperID, targetID)
	if commonInterests == nil {
		commonInterests = []string{}
	}

	var rec model.Match
	err = tx.QueryRow(ctx, `
INSERT INTO matches (
	user1_id,
	user2_id,
	status,
	match_quality,
	common_interests,
	matched_at
) VALUES ($1, $2, 'active', $3, $4, $5)
ON CONFLICT (user1_id, user2_id) WHERE status = 'active' DO NOTHING
RETURNING id, user1_id, user2_id, status, match_quality, common_interests, conversation_id, matched_at
`, user1, user2, quality, commonInterests, now.UTC()).Scan(
		&rec.ID,
		&rec.User1ID,
		&rec.User2ID,
		&rec.Status,
		&rec.MatchQuality,
		&rec.CommonInterests,
		&rec.ConversationID,
		&rec.MatchedAt,
	)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("create match: %w", err)
	}

	existing, err := r.getActiveByPair(ctx, tx, user1, user2)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *MatchRepo) getActiveByPair(ctx context.Context, tx pgx.Tx, user1, user2 int64) (*model.Match, error) {
	var rec model.Match
	err := tx.QueryRow(ctx, `
SELECT id, user1_id, user2_id, status, match_quality, common_interests, conversation_id, matched_at
FROM matches
WHERE user1_id = $1 AND user2_id = $2 AND status = 'active'
LIMIT 1
`, user1, user2).Scan(
		&rec.ID,
		&rec.User1ID,
		&rec.User2ID,
		&rec.Status,
		&rec.MatchQuality,
		&rec.CommonInterests,
		&rec.ConversationID,
		&rec.MatchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("get active match: %w", err)
	}

	return &rec, nil
}

// HasActivePair reports whether an active match exists for the pair inside
// the caller's transaction.
func (r *MatchRepo) HasActivePair(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return false, fmt.Errorf("invalid match pair")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	user1, user2 := rules.CanonicalPair(userID, targetID)

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM matches
WHERE user1_id = $1 AND user2_id = $2 AND status = 'active'
LIMIT 1
`, user1, user2).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup active match: %w", err)
	}

	return true, nil
}

func (r *MatchRepo) GetActiveByUsers(ctx context.Context, userID, targetID int64) (*model.Match, error) {
	if userID <= 0 || targetID <= 0 {
		return nil, fmt.Errorf("invalid match lookup payload")
	}
	if r.pool == nil {
		return nil, ErrMatchNotFound
	}

	user1, user2 := rules.CanonicalPair(userID, targetID)
	var rec model.Match
	err := r.pool.QueryRow(ctx, `
SELECT id, user1_id, user2_id, status, match_quality, common_interests, conversation_id, matched_at
FROM matches
WHERE user1_id = $1 AND user2_id = $2 AND status = 'active'
LIMIT 1
`, user1, user2).Scan(
		&rec.ID,
		&rec.User1ID,
		&rec.User2ID,
		&rec.Status,
		&rec.MatchQuality,
		&rec.CommonInterests,
		&rec.ConversationID,
		&rec.MatchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("get active match by users: %w", err)
	}

	return &rec, nil
}

func (r *MatchRepo) ListActiveForUser(ctx context.Context, userID int64, limit int) ([]MatchWithUserRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchWithUserRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	m.user1_id,
	m.user2_id,
	m.status,
	m.match_quality,
	m.common_interests,
	m.conversation_id,
	m.matched_at,
	u.id,
	COALESCE(u.username, ''),
	COALESCE(u.display_name, '')
FROM matches m
JOIN users u ON u.id = CASE WHEN m.user1_id = $1 THEN m.user2_id ELSE m.user1_id END
WHERE
	(m.user1_id = $1 OR m.user2_id = $1)
	AND m.status = 'active'
ORDER BY m.matched_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchWithUserRecord, 0, limit)
	for rows.Next() {
		var item MatchWithUserRecord
		if err := rows.Scan(
			&item.Match.ID,
			&item.Match.User1ID,
			&item.Match.User2ID,
			&item.Match.Status,
			&item.Match.MatchQuality,
			&item.Match.CommonInterests,
			&item.Match.ConversationID,
			&item.Match.MatchedAt,
			&item.Other.ID,
			&item.Other.Username,
			&item.Other.DisplayName,
		); err != nil {
			return nil, fmt.Errorf("scan active match: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate active matches: %w", rows.Err())
	}

	return items, nil
}

// SetConversationID is write-once. The chat collaborator owns the value; a
// second assignment fails with ErrConversationAssigned.
func (r *MatchRepo) SetConversationID(ctx context.Context, matchID int64, conversationID string) error {
	if matchID <= 0 || conversationID == "" {
		return fmt.Errorf("invalid conversation payload")
	}
	if r.pool == nil {
		return ErrMatchNotFound
	}

	result, err := r.pool.Exec(ctx, `
UPDATE matches
SET conversation_id = $2
WHERE id = $1 AND conversation_id IS NULL
`, matchID, conversationID)
	if err != nil {
		return fmt.Errorf("set conversation id: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var one int
	err = r.pool.QueryRow(ctx, `SELECT 1 FROM matches WHERE id = $1 LIMIT 1`, matchID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("check match for conversation: %w", err)
	}
	return ErrConversationAssigned
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID int64) (*model.Match, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return nil, ErrMatchNotFound
	}

	var rec model.Match
	err := r.pool.QueryRow(ctx, `
SELECT id, user1_id, user2_id, status, match_quality, common_interests, conversation_id, matched_at
FROM matches
WHERE id = $1
LIMIT 1
`, matchID).Scan(
		&rec.ID,
		&rec.User1ID,
		&rec.User2ID,
		&rec.Status,
		&rec.MatchQuality,
		&rec.CommonInterests,
		&rec.ConversationID,
		&rec.MatchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("get match by id: %w", err)
	}

	return &rec, nil
}

// UpdateStatusByUsers moves the pair's active match to the given status.
// Matches are never hard-deleted.
func (r *MatchRepo) UpdateStatusByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64, status enums.MatchStatus) (bool, error) {
	if userID <= 0 || targetID <= 0 {
		return false, fmt.Errorf("invalid match status payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	user1, user2 := rules.CanonicalPair(userID, targetID)
	result, err := tx.Exec(ctx, `
UPDATE matches
SET status = $3
WHERE user1_id = $1 AND user2_id = $2 AND status = 'active'
`, user1, user2, string(status))
	if err != nil {
		return false, fmt.Errorf("update match status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
