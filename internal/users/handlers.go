// internal/users/handlers.go

package users

import (
	"log/slog"
	"net/http"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

// Handler handles account HTTP requests
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new users handler
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetMyProfile returns the caller's own profile
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, profile, http.StatusOK)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, profile, http.StatusOK)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	raw, err := utils.DecodeJSONObject(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	var req UpdateProfileRequest
	if err := utils.Bind(raw, UpdateFields, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), callerID, userID, &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, profile, http.StatusOK)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), callerID, userID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}

func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	addresses, err := h.service.ListAddresses(r.Context(), callerID, userID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, addresses, http.StatusOK)
}

func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	raw, err := utils.DecodeJSONObject(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	var req CreateAddressRequest
	if err := utils.Bind(raw, AddressFields, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	address, err := h.service.CreateAddress(r.Context(), callerID, userID, &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, address, http.StatusCreated)
}

func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	addressID, err := utils.PathID(r, "addressID")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	raw, err := utils.DecodeJSONObject(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	var req UpdateAddressRequest
	if err := utils.Bind(raw, AddressFields, &req); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	address, err := h.service.UpdateAddress(r.Context(), callerID, userID, addressID, &req)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, address, http.StatusOK)
}

func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	userID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	addressID, err := utils.PathID(r, "addressID")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteAddress(r.Context(), callerID, userID, addressID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}
