package model

import "time"

// SwipePreferences are the per-user filter settings read by the queue builder.
type SwipePreferences struct {
	UserID                 int64     `json:"user_id"`
	MaxDistanceKM          int       `json:"max_distance_km"`
	MinAge                 int       `json:"min_age"`
	MaxAge                 int       `json:"max_age"`
	ShowMe                 string    `json:"show_me"`
	RequireCommonInterests bool      `json:"require_common_interests"`
	MinCommonInterests     int       `json:"min_common_interests"`
	ExcludeAlreadySwiped   bool      `json:"exclude_already_swiped"`
	OnlyShowActiveUsers    bool      `json:"only_show_active_users"`
	IsVisible              bool      `json:"is_visible"`
	IsPremium              bool      `json:"is_premium"`
	UpdatedAt              time.Time `json:"updated_at"`
}
