package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	appErr "github.com/designwheel/engine/pkg/errors"
)

type memoryBlob struct {
	obj  Object
	data []byte
}

// MemoryStore keeps content in process. URLs point back at the API's asset route.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]memoryBlob
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: baseURL, blobs: map[string]memoryBlob{}}
}

func (s *MemoryStore) Put(_ context.Context, name, contentType string, data []byte) (Object, error) {
	key := ObjectKey(name, data)
	obj := Object{Ref: key, Name: SafeName(name), ContentType: contentType, Size: int64(len(data))}
	s.mu.Lock()
	s.blobs[key] = memoryBlob{obj: obj, data: append([]byte(nil), data...)}
	s.mu.Unlock()
	return obj, nil
}

func (s *MemoryStore) URL(_ context.Context, ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[ref]; !ok {
		return "", appErr.New(appErr.CodeNotFound, "asset content not found")
	}
	return s.baseURL + ref, nil
}

func (s *MemoryStore) Open(_ context.Context, ref string) (io.ReadCloser, Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	if !ok {
		return nil, Object{}, appErr.New(appErr.CodeNotFound, "asset content not found")
	}
	return io.NopCloser(bytes.NewReader(b.data)), b.obj, nil
}

var _ Store = (*MemoryStore)(nil)
