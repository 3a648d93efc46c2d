package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	appauth "github.com/smartfarm/farm-mgmt/internal/pkg/application/auth"
	"github.com/smartfarm/farm-mgmt/internal/pkg/presentation/api/auth"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

func registerHandler(log zerolog.Logger, svc appauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "register-user")
		defer span.End()

		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "Username and password are required")
			return
		}

		resp, err := svc.Register(ctx, req.Username, req.Password, req.UserType)
		if err != nil {
			if errors.Is(err, appauth.ErrUsernameTaken) {
				writeError(w, http.StatusConflict, "Username already exists")
				return
			}
			log.Error().Err(err).Msg("registration failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func loginHandler(log zerolog.Logger, svc appauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "login-user")
		defer span.End()

		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		resp, err := svc.Login(ctx, req.Username, req.Password)
		if err != nil {
			if errors.Is(err, appauth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			log.Error().Err(err).Msg("login failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func refreshHandler(log zerolog.Logger, svc appauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "refresh-token")
		defer span.End()

		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		access, err := svc.Refresh(ctx, req.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, appauth.ErrTokenExpired):
				writeError(w, http.StatusUnauthorized, "Token has expired")
			case errors.Is(err, appauth.ErrUserNotFound):
				writeError(w, http.StatusUnauthorized, "Invalid token")
			case errors.Is(err, appauth.ErrTokenMalformed), errors.Is(err, appauth.ErrTokenWrongKind):
				writeError(w, http.StatusUnauthorized, "Invalid token")
			default:
				log.Error().Err(err).Msg("token refresh failed")
				internalError(w)
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"access_token": access,
		})
	}
}

func checkUsernameHandler(log zerolog.Logger, svc appauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "check-username")
		defer span.End()

		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Username == "" {
			writeError(w, http.StatusBadRequest, "Username is required")
			return
		}

		exists, err := svc.CheckUsername(ctx, req.Username)
		if err != nil {
			log.Error().Err(err).Msg("username check failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"exists":    exists,
			"available": !exists,
		})
	}
}

func updateProfileHandler(log zerolog.Logger, svc appauth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "update-profile")
		defer span.End()

		claims, ok := auth.ClaimsFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token is missing")
			return
		}

		var req struct {
			DisplayName string `json:"display_name"`
			Email       string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		err := svc.UpdateProfile(ctx, claims.Username, req.DisplayName, req.Email)
		if err != nil {
			if errors.Is(err, appauth.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "User not found")
				return
			}
			log.Error().Err(err).Msg("profile update failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
