package dto

import "time"

type MatchItemResponse struct {
	ID              int64     `json:"id"`
	OtherUserID     int64     `json:"other_user_id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	MatchQuality    float64   `json:"match_quality"`
	CommonInterests []string  `json:"common_interests"`
	ConversationID  *string   `json:"conversation_id,omitempty"`
	MatchedAt       time.Time `json:"matched_at"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}

type AttachConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type AttachConversationResponse struct {
	OK bool `json:"ok"`
}

type UnmatchRequest struct {
	TargetID int64 `json:"target_id"`
}

type UnmatchResponse struct {
	OK      bool `json:"ok"`
	Removed bool `json:"removed"`
}

type BlockRequest struct {
	TargetID int64 `json:"target_id"`
}

type BlockResponse struct {
	OK      bool `json:"ok"`
	Blocked bool `json:"blocked"`
}
