/*
Package handler provides HTTP handler functions for reading the hall's state and
exporting its history.
*/
package handler

import (
	"net/http"
	"strconv"

	"hallchat/internal/pkg/auth/jwt"
	"hallchat/internal/pkg/errs"
	"hallchat/internal/pkg/logx"
	"hallchat/internal/pkg/resp"
)

// HandleOnlineCount returns the number of live connections.
func HandleOnlineCount(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]any{
			"count": deps.Manager.OnlineCount(),
		})
	}
}

// HandleHistory returns recent messages. The optional limit is clamped to the replay limit.
func HandleHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = n
		}

		resp.RespondSuccess(w, map[string]any{
			"messages": deps.Manager.History(limit),
		})
	}
}

// HandleExportHistory writes the cached history to the archive and returns a download link.
// Only registered users may export.
func HandleExportHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil || payload.UserType != jwt.UserTypeRegistered {
			resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if deps.Exporter == nil {
			resp.RespondError(w, errs.NewError(errs.ErrHistoryExportUnavailable))
			return
		}

		result, err := deps.Exporter.Export(r.Context(), payload.Username, deps.Manager.Snapshot())
		if err != nil {
			logx.Error(err, "history export failed", "user_id", payload.ID)
			resp.RespondError(w, errs.NewError(errs.ErrHistoryExportFailed))
			return
		}

		logx.Info("History exported", "user_id", payload.ID, "key", result.Key, "count", result.Count)
		resp.RespondSuccess(w, result)
	}
}
