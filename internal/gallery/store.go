// Package gallery resolves reference images for a condition from the blob
// object store.
package gallery

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the blob store collaborator. Every call may fail; the
// resolver's degradation policy decides what that means for the response.
type ObjectStore interface {
	// ListPage returns one page of object keys under prefix. A non-empty
	// continuation token requests the page after the one that produced it;
	// an empty returned token means there are no further pages.
	ListPage(ctx context.Context, prefix, continuationToken string) (keys []string, nextToken string, err error)
	// SignGetURL issues a time-limited read URL for key.
	SignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
}
