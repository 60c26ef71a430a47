package dto

import "time"

type SwipeRequest struct {
	TargetID int64  `json:"target_id"`
	Action   string `json:"action"`
	Context  string `json:"context,omitempty"`
}

type SwipeResponse struct {
	OK        bool           `json:"ok"`
	Matched   bool           `json:"matched"`
	Duplicate bool           `json:"duplicate"`
	Action    string         `json:"action"`
	Match     *MatchResponse `json:"match,omitempty"`
}

type UndoResponse struct {
	OK             bool   `json:"ok"`
	UndoneAction   string `json:"undone_action"`
	UndoneTargetID int64  `json:"undone_target_id"`
}

type MatchResponse struct {
	ID              int64     `json:"id"`
	OtherUserID     int64     `json:"other_user_id"`
	MatchQuality    float64   `json:"match_quality"`
	CommonInterests []string  `json:"common_interests"`
	ConversationID  *string   `json:"conversation_id,omitempty"`
	MatchedAt       time.Time `json:"matched_at"`
}
