package handlers

import (
	"errors"
	"net/http"

	"github.com/Loop-It-Project/Loop-It-sub002/internal/domain/model"
	authsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/auth"
	prefsvc "github.com/Loop-It-Project/Loop-It-sub002/internal/services/prefs"
	"github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/dto"
	httperrors "github.com/Loop-It-Project/Loop-It-sub002/internal/transport/http/errors"
)

const defaultPendingLikesLimit = 20

type PrefsHandler struct {
	service *prefsvc.Service
}

func NewPrefsHandler(service *prefsvc.Service) *PrefsHandler {
	return &PrefsHandler{service: service}
}

func (h *PrefsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PREFS_SERVICE_UNAVAILABLE", "preferences service is unavailable")
		return
	}

	prefs, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, prefsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid preferences request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load preferences")
		return
	}

	httperrors.Write(w, http.StatusOK, prefsToResponse(prefs))
}

func (h *PrefsHandler) Put(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PREFS_SERVICE_UNAVAILABLE", "preferences service is unavailable")
		return
	}

	var req dto.PreferencesPayload
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	saved, err := h.service.Replace(r.Context(), model.SwipePreferences{
		UserID:                 identity.UserID,
		MaxDistanceKM:          req.MaxDistanceKM,
		MinAge:                 req.MinAge,
		MaxAge:                 req.MaxAge,
		ShowMe:                 req.ShowMe,
		RequireCommonInterests: req.RequireCommonInterests,
		MinCommonInterests:     req.MinCommonInterests,
		ExcludeAlreadySwiped:   req.ExcludeAlreadySwiped,
		OnlyShowActiveUsers:    req.OnlyShowActiveUsers,
		IsVisible:              req.IsVisible,
		IsPremium:              req.IsPremium,
	})
	if err != nil {
		if errors.Is(err, prefsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "preferences out of allowed range")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to save preferences")
		return
	}

	httperrors.Write(w, http.StatusOK, prefsToResponse(saved))
}

func (h *PrefsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PREFS_SERVICE_UNAVAILABLE", "preferences service is unavailable")
		return
	}

	stats, err := h.service.Stats(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, prefsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid stats request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load stats")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StatsResponse{
		TotalSwipes:         stats.TotalSwipes,
		TotalLikes:          stats.TotalLikes,
		TotalSkips:          stats.TotalSkips,
		TotalMatches:        stats.TotalMatches,
		LikesReceived:       stats.LikesReceived,
		MatchesReceived:     stats.MatchesReceived,
		AverageMatchQuality: stats.AverageMatchQuality,
		SwipeStreak:         stats.SwipeStreak,
		BestMatchQuality:    stats.BestMatchQuality,
		LastSwipeDate:       stats.LastSwipeDate,
	})
}

func (h *PrefsHandler) PendingLikes(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PREFS_SERVICE_UNAVAILABLE", "preferences service is unavailable")
		return
	}

	limit := parseIntOrDefault(r.URL.Query().Get("limit"), defaultPendingLikesLimit)

	likes, err := h.service.PendingLikes(r.Context(), identity.UserID, limit)
	if err != nil {
		if errors.Is(err, prefsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid pending likes request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load pending likes")
		return
	}

	resp := dto.PendingLikesResponse{Items: make([]dto.PendingLikeResponse, 0, len(likes))}
	for _, like := range likes {
		resp.Items = append(resp.Items, dto.PendingLikeResponse{
			UserID:      like.UserID,
			Username:    like.Username,
			DisplayName: like.DisplayName,
			IsSuperLike: like.IsSuperLike,
			LikedAt:     like.LikedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func prefsToResponse(prefs model.SwipePreferences) dto.PreferencesResponse {
	return dto.PreferencesResponse{
		PreferencesPayload: dto.PreferencesPayload{
			MaxDistanceKM:          prefs.MaxDistanceKM,
			MinAge:                 prefs.MinAge,
			MaxAge:                 prefs.MaxAge,
			ShowMe:                 prefs.ShowMe,
			RequireCommonInterests: prefs.RequireCommonInterests,
			MinCommonInterests:     prefs.MinCommonInterests,
			ExcludeAlreadySwiped:   prefs.ExcludeAlreadySwiped,
			OnlyShowActiveUsers:    prefs.OnlyShowActiveUsers,
			IsVisible:              prefs.IsVisible,
			IsPremium:              prefs.IsPremium,
		},
		UpdatedAt: prefs.UpdatedAt,
	}
}
