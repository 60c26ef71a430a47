package enums

type SwipeAction string

const (
	SwipeActionLike      SwipeAction = "LIKE"
	SwipeActionSkip      SwipeAction = "SKIP"
	SwipeActionSuperLike SwipeAction = "SUPERLIKE"
)

func (a SwipeAction) Valid() bool {
	switch a {
	case SwipeActionLike, SwipeActionSkip, SwipeActionSuperLike:
		return true
	default:
		return false
	}
}

// CountsAsLike reports whether the action can form one half of a match.
func (a SwipeAction) CountsAsLike() bool {
	return a == SwipeActionLike || a == SwipeActionSuperLike
}
