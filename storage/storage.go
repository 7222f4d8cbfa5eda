// Package storage persists uploaded file bytes behind a small blob interface.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ErrNotFound is returned by Get when no blob exists at the path.
var ErrNotFound = errors.New("blob not found")

// BlobStore stores opaque bytes and hands back a path that Get accepts.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, storagePath string) ([]byte, error)
}

// SanitizeFilename reduces a client supplied name to a safe single path segment.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > 200 {
		out = out[len(out)-200:]
	}
	if out == "" {
		return "file"
	}
	return out
}

// NewKey builds a dated, collision resistant storage key for a sanitized filename.
func NewKey(now time.Time, filename string) (string, error) {
	id, err := gonanoid.Generate(keyAlphabet, 12)
	if err != nil {
		return "", err
	}
	return path.Join(now.Format("2006"), now.Format("01"), now.Format("02"), id+"_"+filename), nil
}
