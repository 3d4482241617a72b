// internal/posts/handlers.go
package posts

import (
	"log/slog"
	"net/http"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/pets"
	"github.com/furlorn/furlorn-backend/internal/photos"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	maxUpload int64
}

func NewHandler(service *Service, logger *slog.Logger, maxUpload int64) *Handler {
	return &Handler{service: service, logger: logger, maxUpload: maxUpload}
}

func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	switch filter.Status {
	case "", StatusLost, StatusFound, StatusResolved:
	default:
		utils.WriteError(w, r, h.logger, utils.NewValidationError("status", "must be one of: lost found resolved"))
		return
	}
	filter.Limit, filter.Offset = utils.Pagination(r)

	feed, err := h.service.Feed(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, feed, http.StatusOK)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	post, err := h.service.Get(r.Context(), postID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusOK)
}

// CreatePost accepts JSON or multipart form data. The pet is either a nested
// object under "pet" or an existing one referenced by "pet_id".
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	payload, err := utils.ReadPayload(r, h.maxUpload)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	in, err := decodeCreate(payload)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	post, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusCreated)
}

func decodeCreate(payload *utils.Payload) (*CreatePostRequest, error) {
	if err := payload.Check(CreateFields); err != nil {
		return nil, err
	}
	if raw, ok := payload.Fields["pet"]; ok {
		if err := pets.CheckNested(raw, "pet"); err != nil {
			return nil, err
		}
	}
	if raw, ok := payload.Fields["photos"]; ok {
		if err := utils.CheckNestedItems(raw, "photos", photos.ItemFields); err != nil {
			return nil, err
		}
	}

	var in CreatePostRequest
	if err := payload.Decode(&in); err != nil {
		return nil, err
	}
	if files := payload.Files["photos"]; len(files) > 0 {
		uploads, err := photos.FromMultipart(files)
		if err != nil {
			return nil, err
		}
		in.Photos = append(in.Photos, uploads...)
	}
	return &in, nil
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	postID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	raw, err := utils.DecodeJSONObject(r)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	var in UpdatePostRequest
	if err := utils.Bind(raw, UpdateFields, &in); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	post, err := h.service.Update(r.Context(), userID, postID, &in)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, post, http.StatusOK)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	postID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), userID, postID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}

func (h *Handler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	postID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	uploads, err := photos.ReadUploads(r, h.maxUpload)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	added, err := h.service.AddPhotos(r.Context(), userID, postID, uploads)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, added, http.StatusCreated)
}

func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	postID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	photoID, err := utils.PathID(r, "photoID")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeletePhoto(r.Context(), userID, postID, photoID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}
