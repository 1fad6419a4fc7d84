package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eventconnect-server/internal/service"
	"eventconnect-server/internal/util"
)

// AuthHandler exposes the unauthenticated OTP endpoints: login and account
// recovery.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-otp", h.SendOTP)
	r.Post("/verify-otp", h.VerifyOTP)
	r.Post("/recover-account", h.RecoverAccount)
	r.Post("/verify-recovery", h.VerifyRecovery)
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	challenge, err := h.auth.RequestLoginCode(r.Context(), req.Phone)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, challenge)
	h.logger.Debug("OTP requested via HTTP",
		util.String("session_id", challenge.SessionID),
		util.Duration("duration", time.Since(startTime)),
	)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		OTPCode   string `json:"otpCode"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.SessionID == "" || req.OTPCode == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "Session ID, OTP, and phone are required")
		return
	}

	result, err := h.auth.VerifyLoginCode(r.Context(), req.SessionID, req.OTPCode, req.Phone)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
	h.logger.Info("Login verified via HTTP", util.String("user_id", result.UserID))
}

func (h *AuthHandler) RecoverAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	challenge, err := h.auth.RequestRecovery(r.Context(), req.Phone)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, challenge)
}

func (h *AuthHandler) VerifyRecovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		OTPCode   string `json:"otpCode"`
		Phone     string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.SessionID == "" || req.OTPCode == "" || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "Session ID, OTP, and phone are required")
		return
	}

	result, err := h.auth.VerifyRecovery(r.Context(), req.SessionID, req.OTPCode, req.Phone)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
	h.logger.Info("Account recovered via HTTP", util.String("user_id", result.UserID))
}
