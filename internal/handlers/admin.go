package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"WeaveSync/internal/config"
	"WeaveSync/internal/middleware"
	"WeaveSync/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler - JSON API провижининга: пользователи и очистка.
type AdminHandler struct {
	UserService *service.UserService
	SyncService *service.SyncService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewAdminHandler(userService *service.UserService, syncService *service.SyncService, logger *zap.SugaredLogger, cfg *config.Config) *AdminHandler {
	return &AdminHandler{UserService: userService, SyncService: syncService, Logger: logger, Config: cfg}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type createUserRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type cleanupRequest struct {
	Days *int `json:"days"`
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Login сверяет учётку администратора из конфигурации и выдаёт cookie.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	loginOK := equalSecret(req.Login, h.Config.AdminLogin)
	passOK := equalSecret(req.Password, h.Config.AdminPassword)
	if !loginOK || !passOK {
		h.Logger.Warnw("Admin: login failed", "login", req.Login)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := middleware.SetLoginCookie(w, h.Config.AdminLogin, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("Admin: failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "ListUsers", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	details, err := h.UserService.UserDetails(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, "GetUser", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	user, err := h.UserService.Register(r.Context(), req.UserName, req.Password, req.Email)
	if err != nil {
		h.fail(w, "CreateUser", err)
		return
	}
	h.Logger.Infow("Admin: user created", "user_id", user.ID, "username", user.UserName)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.UserService.ChangePasswordByName(r.Context(), name, req.Password); err != nil {
		h.fail(w, "ChangePassword", err)
		return
	}
	h.Logger.Infow("Admin: password changed", "username", name)
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.UserService.DeleteUser(r.Context(), name); err != nil {
		h.fail(w, "DeleteUser", err)
		return
	}
	h.Logger.Infow("Admin: user deleted", "username", name)
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// Cleanup запускает политику хранения; days по умолчанию из конфигурации.
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := h.Config.RetentionDays
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(body) > 0 {
		var req cleanupRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.Days != nil {
			days = *req.Days
		}
	}
	if days < 0 {
		writeError(w, http.StatusBadRequest, "days must not be negative")
		return
	}
	n, err := h.SyncService.Cleanup(r.Context(), days)
	if err != nil {
		h.fail(w, "Cleanup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *AdminHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUserName), errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLoginTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.Logger.Errorw("Admin: "+op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
