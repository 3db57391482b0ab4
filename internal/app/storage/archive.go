package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hallchat/internal/app/chat"
	"hallchat/internal/pkg/randx"
)

// DownloadLinkDuration is how long an export's download link stays valid.
const DownloadLinkDuration = 15 * time.Minute

// Archive is a history snapshot as written to object storage.
type Archive struct {
	ExportedAt time.Time             `json:"exported_at"`
	ExportedBy string                `json:"exported_by"`
	Count      int                   `json:"count"`
	Messages   []chat.MessagePayload `json:"messages"`
}

// ExportResult describes a finished export.
type ExportResult struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// HistoryExporter writes history snapshots through a StorageService.
type HistoryExporter struct {
	svc StorageService
	now func() time.Time
}

// NewHistoryExporter returns an exporter writing through svc.
func NewHistoryExporter(svc StorageService) *HistoryExporter {
	return &HistoryExporter{svc: svc, now: time.Now}
}

// Export uploads msgs as one JSON archive and returns a presigned link to it.
// If presigning fails the uploaded object is removed again.
func (e *HistoryExporter) Export(ctx context.Context, requestedBy string, msgs []chat.MessagePayload) (ExportResult, error) {
	now := e.now().UTC()

	body, err := json.Marshal(Archive{
		ExportedAt: now,
		ExportedBy: requestedBy,
		Count:      len(msgs),
		Messages:   msgs,
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode archive: %w", err)
	}

	key := randx.ArchiveKey(now)
	if err := e.svc.Put(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return ExportResult{}, err
	}

	url, err := e.svc.PresignDownload(ctx, key, DownloadLinkDuration)
	if err != nil {
		_ = e.svc.Delete(ctx, key)
		return ExportResult{}, err
	}

	return ExportResult{Key: key, URL: url, Count: len(msgs)}, nil
}
