package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	swipesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/swipes"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/dto"
	httperrors "github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID <= 0 || strings.TrimSpace(req.Action) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and action are required")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetID, req.Action, req.Context)
	if err != nil {
		var tooFast swipesvc.TooFastError
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrUnsupportedAction):
			writeBadRequest(w, "VALIDATION_ERROR", "unsupported action")
		case errors.Is(err, swipesvc.ErrTargetNotFound):
			writeNotFound(w, "TARGET_NOT_FOUND", "target user does not exist")
		case errors.As(err, &tooFast):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_FAST",
				Message:       "too many swipes, slow down",
				RetryAfterSec: tooFast.RetryAfterSec,
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	resp := dto.SwipeResponse{
		OK:        true,
		Matched:   result.Match != nil,
		Duplicate: !result.Created,
		Action:    string(result.Swipe.Action),
	}
	if result.Match != nil {
		resp.Match = &dto.MatchResponse{
			ID:              result.Match.ID,
			OtherUserID:     result.Match.OtherUser(identity.UserID),
			MatchQuality:    result.Match.MatchQuality,
			CommonInterests: result.Match.CommonInterests,
			ConversationID:  result.Match.ConversationID,
			MatchedAt:       result.Match.MatchedAt,
		}
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *SwipeHandler) Undo(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	result, err := h.service.Undo(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid undo request")
		case errors.Is(err, swipesvc.ErrNothingToUndo):
			writeNotFound(w, "NOTHING_TO_UNDO", "no swipe to undo")
		case errors.Is(err, swipesvc.ErrUndoMatched):
			writeConflict(w, "UNDO_AFTER_MATCH", "cannot undo a swipe that formed a match")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to undo swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UndoResponse{
		OK:             true,
		UndoneAction:   string(result.Action),
		UndoneTargetID: result.TargetID,
	})
}
