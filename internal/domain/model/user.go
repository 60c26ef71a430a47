package model

// UserSummary is the slice of the platform's user directory the matching
// engine is allowed to see and forward in notifications.
type UserSummary struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
