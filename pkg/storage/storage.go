// Package storage holds the object stores used for listing images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrForeignURL is returned when asked to delete a URL the store did not issue.
var ErrForeignURL = errors.New("url is not managed by this store")

// Object is a single file to be stored under Key.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store puts objects and deletes them again by their public URL.
type Store interface {
	Put(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, url string) error
}

// ObjectKey builds "<folder>/<unix-ms>-<rand>-<name>" for an uploaded file.
func ObjectKey(folder, filename string, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, filepath.Base(filename))
	return path.Join(folder, fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], name))
}

// keyFromURL strips base from url, rejecting anything outside it.
func keyFromURL(base, url string) (string, error) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%s: %w", url, ErrForeignURL)
	}
	key := path.Clean(strings.TrimPrefix(url, prefix))
	if key == "." || strings.HasPrefix(key, "../") || key == ".." || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%s: %w", url, ErrForeignURL)
	}
	return key, nil
}
