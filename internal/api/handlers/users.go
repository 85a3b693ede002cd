package handlers

import (
	"net/http"

	"github.com/baharkarakas/imagegen-backend/internal/api/httpx"
	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/middleware"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/services"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type registerReq struct {
	Username string `json:"username" validate:"notblank,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResp struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

func toUserResp(u models.User, token string) userResp {
	return userResp{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, Token: token}
}

// Register handles POST /api/users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResp(s.User, s.Token))
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResp(s.User, s.Token))
}

// Profile handles GET /api/users/profile.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.New(apperr.ErrUnauthorized, "Not authorized, no token"))
		return
	}
	u, err := h.svc.Profile(r.Context(), id.ID)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResp(u, ""))
}

// List handles GET /api/users (admin).
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	out := make([]userResp, len(users))
	for i, u := range users {
		out[i] = toUserResp(u, "")
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
