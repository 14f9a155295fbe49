// Package objstore stores rendered images and returns the URL they are served
// from.
package objstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sink stores an object and returns a URL for it.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Key returns a unique object key under prefix, partitioned by date.
func Key(prefix, ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", strings.Trim(prefix, "/"), d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

// DataURLSink inlines objects as data URLs. Nothing is stored.
type DataURLSink struct{}

// Put returns data encoded as a base64 data URL. key is ignored.
func (DataURLSink) Put(_ context.Context, _ string, data []byte, contentType string) (string, error) {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
