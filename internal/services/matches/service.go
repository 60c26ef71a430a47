package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotParticipant = errors.New("user is not part of the match")
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type MatchStore interface {
	ListActiveForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchWithUserRecord, error)
	GetByID(ctx context.Context, matchID int64) (*model.Match, error)
	SetConversationID(ctx context.Context, matchID int64, conversationID string) error
	UpdateStatusByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64, status enums.MatchStatus) (bool, error)
}

type Service struct {
	runner     TxRunner
	matchStore MatchStore
}

type Dependencies struct {
	Runner     TxRunner
	MatchStore MatchStore
}

type MatchItem struct {
	ID              int64
	OtherUserID     int64
	Username        string
	DisplayName     string
	MatchQuality    float64
	CommonInterests []string
	ConversationID  *string
	MatchedAt       time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		runner:     deps.Runner,
		matchStore: deps.MatchStore,
	}
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]MatchItem, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matchStore == nil {
		return nil, fmt.Errorf("match store is nil")
	}

	rows, err := s.matchStore.ListActiveForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]MatchItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, MatchItem{
			ID:              row.Match.ID,
			OtherUserID:     row.Other.ID,
			Username:        row.Other.Username,
			DisplayName:     row.Other.DisplayName,
			MatchQuality:    row.Match.MatchQuality,
			CommonInterests: row.Match.CommonInterests,
			ConversationID:  row.Match.ConversationID,
			MatchedAt:       row.Match.MatchedAt,
		})
	}
	return items, nil
}

// AttachConversation binds the chat id created by the messaging system to the
// match, once. A second attach with any id fails.
func (s *Service) AttachConversation(ctx context.Context, userID, matchID int64, conversationID string) error {
	if userID <= 0 || matchID <= 0 || strings.TrimSpace(conversationID) == "" {
		return ErrValidation
	}
	if s.matchStore == nil {
		return fmt.Errorf("match store is nil")
	}

	match, err := s.matchStore.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match.User1ID != userID && match.User2ID != userID {
		return ErrNotParticipant
	}

	return s.matchStore.SetConversationID(ctx, matchID, strings.TrimSpace(conversationID))
}

// Unmatch archives the active match between the two users. Returns false when
// there was nothing to unmatch.
func (s *Service) Unmatch(ctx context.Context, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return false, ErrValidation
	}
	if s.runner == nil || s.matchStore == nil {
		return false, fmt.Errorf("unmatch dependencies are not configured")
	}

	var archived bool
	if err := s.runner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ok, err := s.matchStore.UpdateStatusByUsers(txCtx, tx, userID, targetID, enums.MatchStatusArchived)
		if err != nil {
			return err
		}
		archived = ok
		return nil
	}); err != nil {
		return false, err
	}

	return archived, nil
}

// Block marks the match blocked so neither side is ever re-queued or
// re-matched with the other.
func (s *Service) Block(ctx context.Context, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return false, ErrValidation
	}
	if s.runner == nil || s.matchStore == nil {
		return false, fmt.Errorf("block dependencies are not configured")
	}

	var blocked bool
	if err := s.runner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		ok, err := s.matchStore.UpdateStatusByUsers(txCtx, tx, userID, targetID, enums.MatchStatusBlocked)
		if err != nil {
			return err
		}
		blocked = ok
		return nil
	}); err != nil {
		return false, err
	}

	return blocked, nil
}
