/*
Package handler provides HTTP handler functions for registration, login and the
proof-of-work challenge that guards registration.
*/
package handler

import (
	"errors"
	"net/http"

	"hallchat/internal/app/identity"
	"hallchat/internal/app/user"
	"hallchat/internal/pkg/auth/jwt"
	"hallchat/internal/pkg/errs"
	"hallchat/internal/pkg/logx"
	"hallchat/internal/pkg/pow"
	"hallchat/internal/pkg/req"
	"hallchat/internal/pkg/resp"
)

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SolveChallengeInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandleGetChallenge issues a proof-of-work nonce.
func HandleGetChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]any{
			"nonce":      deps.Pow.NewChallenge(),
			"difficulty": deps.Pow.Difficulty(),
		})
	}
}

// HandleSolveChallenge trades a solved nonce for a single-use proof token.
func HandleSolveChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SolveChallengeInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		token, err := deps.Pow.Solve(input.Nonce, input.Counter)
		if err != nil {
			logx.Info("PoW challenge rejected", "reason", err.Error())
			resp.RespondError(w, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, map[string]any{
			"proofToken": token,
			"expiresIn":  int(pow.ProofTokenDuration.Seconds()),
		})
	}
}

// HandleRegister creates an account. A proof token from the challenge endpoint is required.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		if !deps.Pow.Redeem(r) {
			resp.RespondError(w, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		id, err := deps.Accounts.Register(r.Context(), input.Username, input.Password)
		if err != nil {
			switch {
			case errors.Is(err, user.ErrInvalidUsername):
				resp.RespondError(w, errs.NewError(errs.ErrInvalidUsername))
			case errors.Is(err, user.ErrInvalidPassword):
				resp.RespondError(w, errs.NewError(errs.ErrInvalidPassword))
			case errors.Is(err, user.ErrDuplicateUsername):
				resp.RespondError(w, errs.NewError(errs.ErrUserAlreadyExists))
			default:
				logx.Error(err, "failed to register user")
				resp.RespondError(w, errs.NewError(errs.ErrUnknown))
			}
			return
		}

		respondSession(w, deps, id)
	}
}

// HandleLogin verifies user credentials and issues a session token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		id, err := deps.Accounts.Verify(r.Context(), input.Username, input.Password)
		if err != nil {
			if errors.Is(err, user.ErrInvalidCredentials) {
				resp.RespondError(w, errs.NewError(errs.ErrInvalidCredentials))
				return
			}
			logx.Error(err, "login: credential check failed")
			resp.RespondError(w, errs.NewError(errs.ErrUnknown))
			return
		}

		respondSession(w, deps, id)
	}
}

// respondSession issues a session token for id, sets it as a cookie and writes it in the body.
func respondSession(w http.ResponseWriter, deps *AppDeps, id identity.Identity) {
	payload := &jwt.Payload{
		ID:       id.ID,
		Username: id.Username,
		UserType: jwt.UserTypeRegistered,
	}

	token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionExpiration)
	if err != nil {
		logx.Error(err, "jwt generation failed", "user_id", id.ID)
		resp.RespondError(w, errs.NewError(errs.ErrUnknown))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     jwt.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(jwt.SessionExpiration.Seconds()),
		HttpOnly: true,
		Secure:   !deps.Config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})

	resp.RespondSuccess(w, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":          id.ID,
			"username":    id.Username,
			"displayName": id.DisplayName,
			"userType":    jwt.UserTypeRegistered,
		},
	})
}
