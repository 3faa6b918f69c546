// Package storage implements the media bucket that post images and avatars
// are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MediaPrefix is the URL segment every public media URL contains.
const MediaPrefix = "/media/"

// ErrInvalidPath is returned for object paths that would escape the bucket.
var ErrInvalidPath = errors.New("invalid object path")

// BlobStore is the media bucket.
type BlobStore interface {
	// Put writes data at objectPath. With overwrite false an existing object
	// is an error.
	Put(ctx context.Context, objectPath string, data []byte, overwrite bool) error
	Remove(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}

// LocalStore keeps objects under a directory and serves them at
// <baseURL>/media/<path>.
type LocalStore struct {
	root    string
	baseURL string
	write   func(f *os.File, data []byte) error
}

func writeAll(f *os.File, data []byte) error {
	_, err := f.Write(data)
	return err
}

// NewLocalStore returns a store rooted at dir.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{root: dir, baseURL: strings.TrimRight(baseURL, "/"), write: writeAll}, nil
}

// Root is the directory the store writes to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if objectPath == "" || strings.Contains(objectPath, "..") || clean == "/" {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *LocalStore) Put(ctx context.Context, objectPath string, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return err
	}

	// Objects become visible only once fully written.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := s.write(tmp, data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if overwrite {
		return os.Rename(tmpName, full)
	}
	// Link refuses an existing target.
	return os.Link(tmpName, full)
}

func (s *LocalStore) Remove(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

func (s *LocalStore) PublicURL(objectPath string) string {
	return s.baseURL + MediaPrefix + strings.TrimPrefix(objectPath, "/")
}

// PathFromURL recovers the object path from a public media URL, i.e. the part
// after "/media/".
func PathFromURL(publicURL string) (string, bool) {
	_, objectPath, found := strings.Cut(publicURL, MediaPrefix)
	if !found || objectPath == "" {
		return "", false
	}
	return objectPath, true
}
