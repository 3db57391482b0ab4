package handler

import (
	"context"

	"hallchat/internal/app/chat"
	"hallchat/internal/app/identity"
	"hallchat/internal/app/storage"
	"hallchat/internal/app/user"
	"hallchat/internal/configs"
	"hallchat/internal/pkg/pow"
)

// Accounts is the credential store behind the auth and profile endpoints.
type Accounts interface {
	identity.Provider
	Profile(ctx context.Context, id string) (user.User, error)
}

// HistoryExporter writes history snapshots to the archive.
type HistoryExporter interface {
	Export(ctx context.Context, requestedBy string, msgs []chat.MessagePayload) (storage.ExportResult, error)
}

type AppDeps struct {
	Manager  *chat.Manager
	Config   *configs.AppConfig
	Accounts Accounts
	Pow      *pow.Guard

	// Exporter is nil when no archive storage is configured.
	Exporter HistoryExporter
}
