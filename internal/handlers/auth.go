package handlers

import (
	"net/http"

	"github.com/devwebtn/facturation/internal/httpx"
	"github.com/devwebtn/facturation/internal/services"
)

// AuthHandler exposes registration, login and account endpoints.
type AuthHandler struct {
	Svc  *services.ClientService
	Hist *services.HistorySink
}

func NewAuthHandler(svc *services.ClientService, history *services.HistorySink) *AuthHandler {
	return &AuthHandler{Svc: svc, Hist: history}
}

// Register: POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required"`
		Email       string `json:"email" validate:"required,email"`
		Phone       string `json:"phone"`
		CountryCode string `json:"country_code"`
		Password    string `json:"password" validate:"required,min=8"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	client, err := h.Svc.Register(r.Context(), services.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CountryCode: req.CountryCode,
		Password:    req.Password,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Login: POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	result, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// Profile: GET /api/client/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	client, err := h.Svc.Profile(r.Context(), ident)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// ChangePassword: POST /api/client/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), ident, req.CurrentPassword, req.NewPassword); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "mot de passe mis à jour"})
}

// ListClients: GET /api/clients (admin)
func (h *AuthHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	clients, err := h.Svc.ListClients(r.Context(), ident)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

// History: GET /api/client/{clientID}/history
func (h *AuthHandler) History(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	clientID, err := urlID(r, "clientID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	entries, err := h.Hist.List(r.Context(), ident, clientID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
