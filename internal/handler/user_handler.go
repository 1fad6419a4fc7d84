package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eventconnect-server/internal/model"
	"eventconnect-server/internal/service"
	"eventconnect-server/internal/util"
)

// maxAvatarSize caps multipart parsing for avatar uploads.
const maxAvatarSize = 10 << 20 // 10MB

// UserHandler exposes the authenticated profile and account-lifecycle
// endpoints. Every route is mounted behind RequireAuth.
type UserHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

func NewUserHandler(accounts *service.AccountService, logger *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)
	r.Post("/upload-avatar", h.UploadAvatar)
	r.Post("/request-deletion", h.RequestDeletion)
	r.Delete("/confirm-deletion", h.ConfirmDeletion)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]*model.User{"user": user})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]*model.User{"user": user})
	h.logger.Info("Profile updated via HTTP", util.String("user_id", userID))
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, fileHeader, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()

	// The declared owner must be the authenticated caller.
	if r.FormValue("userId") != userID {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	url, err := h.accounts.UploadAvatar(r.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"avatarUrl": url})
}

func (h *UserHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	challenge, err := h.accounts.RequestDeletion(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, challenge)
	h.logger.Warn("Account deletion requested", util.String("user_id", userID))
}

func (h *UserHandler) ConfirmDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		OTPCode   string `json:"otpCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.SessionID == "" || req.OTPCode == "" {
		respondError(w, http.StatusBadRequest, "Session ID and OTP are required")
		return
	}

	if err := h.accounts.ConfirmDeletion(r.Context(), userID, req.SessionID, req.OTPCode); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
	h.logger.Warn("Account deleted via HTTP", util.String("user_id", userID))
}
