/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which rate limits the caller, resolves its identity,
upgrades the HTTP connection, connects a chat session and then runs the client's read and
write loops.
*/
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hallchat/internal/app/chat"
	"hallchat/internal/pkg/auth/jwt"
	"hallchat/internal/pkg/errs"
	"hallchat/internal/pkg/limiter"
	"hallchat/internal/pkg/logx"
	"hallchat/internal/pkg/randx"
	"hallchat/internal/pkg/resp"
)

const (
	// GuestCookieName carries the signed guest marker across reconnects of the same browser session.
	GuestCookieName = "hall_guest"

	rejectWriteWait = time.Second
)

// cookieSession is the identity.SessionContext of a WebSocket upgrade request.
// Guest markers are read from, and written back as, a session cookie on the upgrade response.
type cookieSession struct {
	r      *http.Request
	header http.Header
	secure bool
}

func newCookieSession(r *http.Request, secure bool) *cookieSession {
	return &cookieSession{r: r, header: http.Header{}, secure: secure}
}

func (s *cookieSession) RegisteredToken() string {
	return jwt.TokenFromRequest(s.r)
}

func (s *cookieSession) GuestMarker() (string, bool) {
	cookie, err := s.r.Cookie(GuestCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (s *cookieSession) MarkGuest(marker string) {
	cookie := &http.Cookie{
		Name:     GuestCookieName,
		Value:    marker,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	s.header.Add("Set-Cookie", cookie.String())
}

// responseHeader is passed to the upgrader so the marker cookie reaches the client.
func (s *cookieSession) responseHeader() http.Header {
	return s.header
}

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		if !websocket.IsWebSocketUpgrade(r) {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		// Resolved before the upgrade so a guest marker can ride on the upgrade response.
		sc := newCookieSession(r, !deps.Config.IsDevelopment())
		id := deps.Manager.Resolve(r.Context(), sc, ip)

		conn, err := upgrader.Upgrade(w, r, sc.responseHeader())
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := chat.NewClient(connID)

		session, err := deps.Manager.ConnectAs(connID, id, ip, client)
		if err != nil {
			rejectConnection(conn, err)
			return
		}

		client.Attach(conn, session)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", connID, "user_id", id.ID)

		// The request context ends when this handler returns; store writes must not.
		client.ReadPump(context.WithoutCancel(r.Context()))
	}
}

// rejectConnection tells an upgraded client why it was not admitted and closes the transport.
func rejectConnection(conn *websocket.Conn, err error) {
	defer conn.Close()

	closeCode := websocket.CloseInternalServerErr
	var customErr *errs.CustomError
	switch {
	case errors.Is(err, chat.ErrDuplicateConnection):
		customErr = errs.NewError(errs.ErrDuplicateConnection)
	case errors.Is(err, chat.ErrShuttingDown):
		customErr = errs.NewError(errs.ErrServerShuttingDown)
		closeCode = websocket.CloseTryAgainLater
	default:
		customErr = errs.From(err)
	}

	logx.Warn("WebSocket connection rejected", "code", customErr.Code, "error", err.Error())

	deadline := time.Now().Add(rejectWriteWait)
	_ = conn.SetWriteDeadline(deadline)

	if frame, encErr := chat.EncodeFrame(chat.EventError, chat.ErrorPayload{Code: customErr.Code, Message: customErr.Message}); encErr == nil {
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, ""), deadline)
}
