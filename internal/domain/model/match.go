package model

import (
	"time"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
)

// Match is a mutual like between two users. User1ID < User2ID always; the
// pair is canonicalized before creation so (A,B) and (B,A) map to one row.
type Match struct {
	ID              int64             `json:"id"`
	User1ID         int64             `json:"user1_id"`
	User2ID         int64             `json:"user2_id"`
	Status          enums.MatchStatus `json:"status"`
	MatchQuality    float64           `json:"match_quality"`
	CommonInterests []string          `json:"common_interests"`
	ConversationID  *string           `json:"conversation_id,omitempty"`
	MatchedAt       time.Time         `json:"matched_at"`
}

// OtherUser returns the counterpart of userID in the pair.
func (m Match) OtherUser(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}
