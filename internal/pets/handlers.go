// internal/pets/handlers.go
package pets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
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

func (h *Handler) ListBreeds(w http.ResponseWriter, r *http.Request) {
	animal := Animal(r.URL.Query().Get("animal"))
	if animal != "" && animal != AnimalUnknown && animal != AnimalDog && animal != AnimalCat {
		utils.WriteError(w, r, h.logger, utils.NewValidationError("animal", "must be one of: unknown dog cat"))
		return
	}

	breeds, err := h.service.Breeds(r.Context(), animal)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, breeds, http.StatusOK)
}

func (h *Handler) ListPets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Animal: Animal(q.Get("animal")),
		Status: Status(q.Get("status")),
	}
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			utils.WriteError(w, r, h.logger, utils.NewValidationError("user_id", "must be a positive integer"))
			return
		}
		filter.UserID = id
	}
	filter.Limit, filter.Offset = utils.Pagination(r)

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, list, http.StatusOK)
}

func (h *Handler) GetPet(w http.ResponseWriter, r *http.Request) {
	petID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	pet, err := h.service.Get(r.Context(), petID)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, pet, http.StatusOK)
}

// CreatePet accepts JSON (photos as base64) or multipart form data (photos as
// files, nested objects as JSON strings).
func (h *Handler) CreatePet(w http.ResponseWriter, r *http.Request) {
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

	pet, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, pet, http.StatusCreated)
}

func decodeCreate(payload *utils.Payload) (*CreatePetInput, error) {
	if err := payload.Check(CreateFields); err != nil {
		return nil, err
	}
	if err := payload.CheckNested("location", LocationFields); err != nil {
		return nil, err
	}
	if raw, ok := payload.Fields["photos"]; ok {
		if err := utils.CheckNestedItems(raw, "photos", photos.ItemFields); err != nil {
			return nil, err
		}
	}

	var in CreatePetInput
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

func (h *Handler) UpdatePet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	petID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	payload, err := utils.ReadPayload(r, h.maxUpload)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	if err := payload.Check(UpdateFields); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	if err := payload.CheckNested("location", LocationFields); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	var in UpdatePetInput
	if err := payload.Decode(&in); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	pet, err := h.service.Update(r.Context(), userID, petID, &in)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, pet, http.StatusOK)
}

func (h *Handler) DeletePet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	petID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), userID, petID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}

func (h *Handler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	petID, err := utils.PathID(r, "id")
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

	added, err := h.service.AddPhotos(r.Context(), userID, petID, uploads)
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.SuccessResponse(w, added, http.StatusCreated)
}

func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	petID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	photoID, err := utils.PathID(r, "photoID")
	if err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeletePhoto(r.Context(), userID, petID, photoID); err != nil {
		utils.WriteError(w, r, h.logger, err)
		return
	}
	utils.NoContent(w)
}
