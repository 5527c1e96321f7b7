package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/singleflight"
)

// CachingStore wraps a remote BlobStore with a local read-through
// cache. Opening a blob that is not cached yet downloads it into the
// local store first; subsequent opens are served from the memory-mapped
// local copy. Index files are immutable, so cached copies never go
// stale under their own name.
type CachingStore struct {
	remote BlobStore
	local  *LocalStore
	fill   singleflight.Group
}

// NewCachingStore creates a CachingStore caching remote blobs under dir.
func NewCachingStore(remote BlobStore, dir string) (*CachingStore, error) {
	local, err := NewLocalStore(dir)
	if err != nil {
		return nil, err
	}

	return &CachingStore{remote: remote, local: local}, nil
}

// Open opens a blob, filling the local cache on a miss. Concurrent
// opens of the same missing blob share a single download.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.local.Open(ctx, name)
	if err == nil {
		return b, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, err, _ := s.fill.Do(name, func() (any, error) {
		return nil, s.download(ctx, name)
	}); err != nil {
		return nil, err
	}

	return s.local.Open(ctx, name)
}

func (s *CachingStore) download(ctx context.Context, name string) error {
	src, err := s.remote.Open(ctx, name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.local.Create(ctx, name)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, io.NewSectionReader(src, 0, src.Size())); err != nil {
		_ = dst.Close()
		return err
	}

	return dst.Close()
}

// Create writes through to the remote store. The local cache is filled
// lazily on the next Open.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.remote.Create(ctx, name)
}

// Delete removes the blob from both stores.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	if err := s.local.Delete(ctx, name); err != nil {
		return err
	}

	return s.remote.Delete(ctx, name)
}

// List lists the remote store; the cache may hold a subset.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}
