// internal/interactions/handlers.go
package interactions

import (
	"log/slog"
	"net/http"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func target(r *http.Request, kind Kind) (Target, error) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		return Target{}, err
	}
	return Target{Kind: kind, ID: id}, nil
}

func (h *Handler) Like(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		t, err := target(r, kind)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}

		state, err := h.service.Like(r.Context(), userID, t)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}
		utils.SuccessResponse(w, state, http.StatusOK)
	}
}

func (h *Handler) Unlike(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		t, err := target(r, kind)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}

		state, err := h.service.Unlike(r.Context(), userID, t)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}
		utils.SuccessResponse(w, state, http.StatusOK)
	}
}

// GetLikes works without a token; liked is then always false.
func (h *Handler) GetLikes(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		t, err := target(r, kind)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}

		state, err := h.service.Likes(r.Context(), userID, t)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}
		utils.SuccessResponse(w, state, http.StatusOK)
	}
}

func (h *Handler) GetComments(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := target(r, kind)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}

		comments, err := h.service.Comments(r.Context(), t)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}
		utils.SuccessResponse(w, comments, http.StatusOK)
	}
}

func (h *Handler) AddComment(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())
		t, err := target(r, kind)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}

		raw, err := utils.DecodeJSONObject(r)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}
		var req CommentRequest
		if err := utils.Bind(raw, CommentFields, &req); err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}

		comment, err := h.service.AddComment(r.Context(), userID, t, &req)
		if err != nil {
			utils.WriteError(w, r, h.logger, err)
			return
		}
		utils.SuccessResponse(w, comment, http.StatusCreated)
	}
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	commentID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteComment(r.Context(), userID, commentID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}
