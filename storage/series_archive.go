package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/matchmaking-system/models"
)

// SeriesArchive writes completed series records to object storage as
// JSON documents so results survive database retention windows.
type SeriesArchive struct {
	store ObjectStore
}

func NewSeriesArchive(store ObjectStore) *SeriesArchive {
	return &SeriesArchive{store: store}
}

// ArchiveSeries uploads the match document and returns its public URL,
// or the object key when the bucket is not publicly exposed.
func (a *SeriesArchive) ArchiveSeries(ctx context.Context, match *models.Match) (string, error) {
	body, err := json.MarshalIndent(match, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal series %s: %w", match.UID, err)
	}

	key := fmt.Sprintf("series/%d/%s/%s.json", match.TenantID, match.QueueName, match.UID)
	if err := a.store.Upload(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("upload series %s: %w", match.UID, err)
	}

	if url := a.store.PublicURL(key); url != "" {
		return url, nil
	}
	return key, nil
}
