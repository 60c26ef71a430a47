package dto

import "time"

type PreferencesPayload struct {
	MaxDistanceKM          int    `json:"max_distance_km"`
	MinAge                 int    `json:"min_age"`
	MaxAge                 int    `json:"max_age"`
	ShowMe                 string `json:"show_me"`
	RequireCommonInterests bool   `json:"require_common_interests"`
	MinCommonInterests     int    `json:"min_common_interests"`
	ExcludeAlreadySwiped   bool   `json:"exclude_already_swiped"`
	OnlyShowActiveUsers    bool   `json:"only_show_active_users"`
	IsVisible              bool   `json:"is_visible"`
	IsPremium              bool   `json:"is_premium"`
}

type PreferencesResponse struct {
	PreferencesPayload
	UpdatedAt time.Time `json:"updated_at"`
}

type StatsResponse struct {
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

type PendingLikeResponse struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	IsSuperLike bool      `json:"is_super_like"`
	LikedAt     time.Time `json:"liked_at"`
}

type PendingLikesResponse struct {
	Items []PendingLikeResponse `json:"items"`
}
