package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/Loop-It-Project/Loop-It-sub002/internal/repo/postgres"
	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	matchsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/matches"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/dto"
	httperrors "github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/errors"
)

const defaultMatchesLimit = 50

type MatchesHandler struct {
	service *matchsvc.Service
}

func NewMatchesHandler(service *matchsvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	limit := parseIntOrDefault(r.URL.Query().Get("limit"), defaultMatchesLimit)

	items, err := h.service.List(r.Context(), identity.UserID, limit)
	if err != nil {
		if errors.Is(err, matchsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		return
	}

	resp := dto.MatchesResponse{Items: make([]dto.MatchItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, dto.MatchItemResponse{
			ID:              item.ID,
			OtherUserID:     item.OtherUserID,
			Username:        item.Username,
			DisplayName:     item.DisplayName,
			MatchQuality:    item.MatchQuality,
			CommonInterests: item.CommonInterests,
			ConversationID:  item.ConversationID,
			MatchedAt:       item.MatchedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *MatchesHandler) AttachConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	matchID, err := strconv.ParseInt(chi.URLParam(r, "matchID"), 10, 64)
	if err != nil || matchID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	var req dto.AttachConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "conversation_id is required")
		return
	}

	if err := h.service.AttachConversation(r.Context(), identity.UserID, matchID, req.ConversationID); err != nil {
		switch {
		case errors.Is(err, matchsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid conversation request")
		case errors.Is(err, pgrepo.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match does not exist")
		case errors.Is(err, matchsvc.ErrNotParticipant):
			writeNotFound(w, "MATCH_NOT_FOUND", "match does not exist")
		case errors.Is(err, pgrepo.ErrConversationAssigned):
			writeConflict(w, "CONVERSATION_ASSIGNED", "match already has a conversation")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to attach conversation")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AttachConversationResponse{OK: true})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.UnmatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	removed, err := h.service.Unmatch(r.Context(), identity.UserID, req.TargetID)
	if err != nil {
		if errors.Is(err, matchsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid unmatch request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to unmatch")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnmatchResponse{OK: true, Removed: removed})
}

func (h *MatchesHandler) Block(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	blocked, err := h.service.Block(r.Context(), identity.UserID, req.TargetID)
	if err != nil {
		if errors.Is(err, matchsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid block request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to block user")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BlockResponse{OK: true, Blocked: blocked})
}
