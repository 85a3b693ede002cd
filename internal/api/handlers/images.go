package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/imagegen-backend/internal/api/httpx"
	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/middleware"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/services"
)

type ImageHandler struct {
	svc *services.ImageService
}

func NewImageHandler(svc *services.ImageService) *ImageHandler {
	return &ImageHandler{svc: svc}
}

type generateReq struct {
	Prompt string `json:"prompt" validate:"notblank,max=1000"`
}

type likesResp struct {
	Likes []string `json:"likes"`
}

func requester(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.New(apperr.ErrUnauthorized, "Not authorized, no token"))
	}
	return id, ok
}

// List handles GET /api/images.
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	imgs, err := h.svc.ListPublic(r.Context())
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, imgs)
}

// Generate handles POST /api/images/generate.
func (h *ImageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	var req generateReq
	if !decode(w, r, &req) {
		return
	}
	img, err := h.svc.Generate(r.Context(), req.Prompt, id)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, img)
}

// Mine handles GET /api/images/myimages.
func (h *ImageHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	imgs, err := h.svc.ListOwnedBy(r.Context(), id.ID)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, imgs)
}

// Get handles GET /api/images/{id}; the bearer is optional.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	var who *models.Identity
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		who = &id
	}
	img, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"), who)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, img)
}

// Like handles PUT /api/images/{id}/like.
func (h *ImageHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	likes, err := h.svc.ToggleLike(r.Context(), chi.URLParam(r, "id"), id)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, likesResp{Likes: likes})
}

// Delete handles DELETE /api/images/{id}.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Message{Message: "Image removed"})
}
