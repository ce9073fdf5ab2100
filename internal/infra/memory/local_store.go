package memory

import (
	"context"
	"sync"
	"sync/atomic"
)

// LocalStore is an in-memory key/value store.
type LocalStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewLocalStore() *LocalStore {
	return &LocalStore{data: make(map[string][]byte)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *LocalStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Connectivity is a switchable connectivity flag.
type Connectivity struct {
	online atomic.Bool
}

func NewConnectivity(online bool) *Connectivity {
	c := &Connectivity{}
	c.online.Store(online)
	return c
}

func (c *Connectivity) IsConnected(context.Context) bool {
	return c.online.Load()
}

func (c *Connectivity) Set(online bool) {
	c.online.Store(online)
}
