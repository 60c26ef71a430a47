package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	queuesvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/queue"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/dto"
	httperrors "github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/errors"
)

const defaultQueueLimit = 10

type QueueHandler struct {
	service *queuesvc.Service
}

func NewQueueHandler(service *queuesvc.Service) *QueueHandler {
	return &QueueHandler{service: service}
}

func (h *QueueHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "QUEUE_SERVICE_UNAVAILABLE", "queue service is unavailable")
		return
	}

	limit := parseIntOrDefault(r.URL.Query().Get("limit"), defaultQueueLimit)

	candidates, err := h.service.Get(r.Context(), identity.UserID, limit)
	if err != nil {
		if errors.Is(err, queuesvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid queue request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load candidates")
		return
	}

	items := make([]dto.QueueCandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, dto.QueueCandidateResponse{
			UserID:             c.UserID,
			Username:           c.Username,
			DisplayName:        c.DisplayName,
			Age:                c.Age,
			CompatibilityScore: c.CompatibilityScore,
			CommonInterests:    c.CommonInterests,
			DistanceKM:         c.DistanceKM,
			PhotoURL:           c.PhotoURL,
			LikedYou:           c.Priority > 0,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.QueueResponse{Items: items})
}
