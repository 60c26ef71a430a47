package dto

type QueueCandidateResponse struct {
	UserID             int64    `json:"user_id"`
	Username           string   `json:"username"`
	DisplayName        string   `json:"display_name"`
	Age                int      `json:"age"`
	CompatibilityScore float64  `json:"compatibility_score"`
	CommonInterests    []string `json:"common_interests"`
	DistanceKM         *float64 `json:"distance_km,omitempty"`
	PhotoURL           *string  `json:"photo_url,omitempty"`
	LikedYou           bool     `json:"liked_you"`
}

type QueueResponse struct {
	Items []QueueCandidateResponse `json:"items"`
}
