package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
)

const (
	EventNewMatch = "new_match"
	EventNewLike  = "new_like"
)

type Publisher interface {
	Publish(ctx context.Context, userID int64, payload []byte) error
}

type DirectoryStore interface {
	GetSummary(ctx context.Context, userID int64) (model.UserSummary, error)
}

type Event struct {
	Type            string    `json:"type"`
	MatchID         int64     `json:"match_id,omitempty"`
	FromUserID      int64     `json:"from_user_id,omitempty"`
	FromUsername    string    `json:"from_username,omitempty"`
	FromDisplayName string    `json:"from_display_name,omitempty"`
	MatchQuality    float64   `json:"match_quality,omitempty"`
	CommonInterests []string  `json:"common_interests,omitempty"`
	IsSuperLike     bool      `json:"is_super_like,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Service pushes match and like events to the per-user channels the socket
// hubs subscribe to. Delivery is best effort: a failed publish is logged and
// the swipe that caused it still succeeds; the client catches up through the
// match list on next poll.
type Service struct {
	publisher Publisher
	directory DirectoryStore
	log       *zap.Logger
	now       func() time.Time
}

func NewService(publisher Publisher, directory DirectoryStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		publisher: publisher,
		directory: directory,
		log:       log,
		now:       time.Now,
	}
}

// NotifyMatch pushes the fresh match to both participants, each event naming
// the counterpart. The initiator also sees the match in the swipe response;
// the push keeps a second open client in sync.
func (s *Service) NotifyMatch(ctx context.Context, match *model.Match, initiatorID int64) {
	if s.publisher == nil || match == nil {
		return
	}

	for _, userID := range []int64{match.User1ID, match.User2ID} {
		event := Event{
			Type:            EventNewMatch,
			MatchID:         match.ID,
			FromUserID:      match.OtherUser(userID),
			MatchQuality:    match.MatchQuality,
			CommonInterests: match.CommonInterests,
			OccurredAt:      s.now().UTC(),
		}
		s.attachSummary(ctx, &event)
		s.publish(ctx, userID, event)
	}
}

// NotifyLike tells the target someone liked them, without a match yet.
func (s *Service) NotifyLike(ctx context.Context, toUserID, fromUserID int64, superLike bool) {
	if s.publisher == nil {
		return
	}

	event := Event{
		Type:        EventNewLike,
		FromUserID:  fromUserID,
		IsSuperLike: superLike,
		OccurredAt:  s.now().UTC(),
	}
	s.attachSummary(ctx, &event)
	s.publish(ctx, toUserID, event)
}

func (s *Service) attachSummary(ctx context.Context, event *Event) {
	if s.directory == nil || event.FromUserID <= 0 {
		return
	}

	summary, err := s.directory.GetSummary(ctx, event.FromUserID)
	if err != nil {
		s.log.Warn("resolve notification counterpart",
			zap.Int64("user_id", event.FromUserID),
			zap.Error(err))
		return
	}
	event.FromUsername = summary.Username
	event.FromDisplayName = summary.DisplayName
}

func (s *Service) publish(ctx context.Context, userID int64, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("marshal notification", zap.Error(err))
		return
	}

	if err := s.publisher.Publish(ctx, userID, payload); err != nil {
		s.log.Warn("publish notification",
			zap.Int64("user_id", userID),
			zap.String("type", event.Type),
			zap.Error(err))
	}
}
