package handler

import (
	"errors"
	"net/http"

	"hallchat/internal/app/identity"
	"hallchat/internal/pkg/auth/jwt"
	"hallchat/internal/pkg/errs"
	"hallchat/internal/pkg/logx"
	"hallchat/internal/pkg/resp"
)

// HandleGetUserProfile returns the signed-in user's profile.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil || payload.UserType != jwt.UserTypeRegistered {
			resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
			return
		}

		profile, err := deps.Accounts.Profile(r.Context(), payload.ID)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				logx.Warn("get_user_profile: user not found", "id", payload.ID)
				resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
				return
			}
			logx.Error(err, "get_user_profile: lookup failed", "id", payload.ID)
			resp.RespondError(w, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, map[string]any{"user": profile})
	}
}
