package model

import (
	"time"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/enums"
)

// SwipeAction is a single directional decision by one user about another.
// Rows are append-only; undo flips IsActive instead of deleting.
type SwipeAction struct {
	ID        int64             `json:"id"`
	SwiperID  int64             `json:"swiper_id"`
	TargetID  int64             `json:"target_id"`
	Action    enums.SwipeAction `json:"action"`
	Context   string            `json:"context,omitempty"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
}
