// Package blob keeps in-memory byte payloads addressable by revocable URLs.
package blob

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown or revoked URLs.
var ErrNotFound = errors.New("blob not found")

// DefaultPrefix is the URL prefix blobs are served under.
const DefaultPrefix = "/api/blobs/"

// Blob is one stored payload.
type Blob struct {
	ID          string
	URL         string
	ContentType string
	Filename    string
	Created     time.Time
	data        []byte
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 { return int64(len(b.data)) }

// Reader returns a seekable reader over the payload.
func (b *Blob) Reader() *bytes.Reader { return bytes.NewReader(b.data) }

// Bytes returns the payload. Callers must not modify it.
func (b *Blob) Bytes() []byte { return b.data }

// Store maps URLs to payloads until they are revoked.
type Store struct {
	prefix  string
	mu      sync.RWMutex
	blobs   map[string]*Blob
	onCount func(int)
}

// NewStore creates a store whose URLs start with prefix.
func NewStore(prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{prefix: prefix, blobs: make(map[string]*Blob)}
}

// OnCountChange registers a function called with the live blob count after
// every Create and effective Revoke.
func (s *Store) OnCountChange(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCount = fn
}

// Create stores data and returns its URL. The store keeps data; callers must
// not modify it afterwards.
func (s *Store) Create(data []byte, contentType, filename string) string {
	id := uuid.NewString()
	b := &Blob{
		ID:          id,
		URL:         s.prefix + id,
		ContentType: contentType,
		Filename:    filename,
		Created:     time.Now(),
		data:        data,
	}

	s.mu.Lock()
	s.blobs[id] = b
	n, fn := len(s.blobs), s.onCount
	s.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return b.URL
}

// Open returns the blob behind url or an id.
func (s *Store) Open(url string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[s.id(url)]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Revoke releases url. It returns true only for the call that released it.
func (s *Store) Revoke(url string) bool {
	if url == "" {
		return false
	}

	s.mu.Lock()
	id := s.id(url)
	_, ok := s.blobs[id]
	delete(s.blobs, id)
	n, fn := len(s.blobs), s.onCount
	s.mu.Unlock()

	if ok && fn != nil {
		fn(n)
	}
	return ok
}

// Len returns the number of live blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *Store) id(url string) string {
	return strings.TrimPrefix(url, s.prefix)
}
