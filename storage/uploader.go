package storage

import (
	"context"
	"io"
)

// ObjectStore is the slice of the bucket API series archival needs: a
// durable write plus a public link for the stored document. PublicURL
// returns "" when the bucket has no public base configured.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, reader io.Reader) error
	PublicURL(key string) string
}
