package model

import "time"

// SwipeStats are derived counters maintained by the engine inside the swipe
// and match transactions. They only ever grow; undo does not decrement.
type SwipeStats struct {
	UserID              int64      `json:"user_id"`
	TotalSwipes         int64      `json:"total_swipes"`
	TotalLikes          int64      `json:"total_likes"`
	TotalSkips          int64      `json:"total_skips"`
	TotalMatches        int64      `json:"total_matches"`
	LikesReceived       int64      `json:"likes_received"`
	MatchesReceived     int64      `json:"matches_received"`
	AverageMatchQuality float64    `json:"average_match_quality"`
	SwipeStreak         int        `json:"swipe_streak"`
	BestMatchQuality    float64    `json:"best_match_quality"`
	LastSwipeDate       *time.Time `json:"last_swipe_date,omitempty"`
}
