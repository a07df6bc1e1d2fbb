package services

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory Cache for testing
type MockCache struct {
	PingFunc func(ctx context.Context) error
	GetFunc  func(ctx context.Context, key string) (string, error)

	mu     sync.Mutex
	values map[string]string

	// Track calls for testing
	SetCalls []SetCall
	GetCalls []string
	DelCalls [][]string
}

type SetCall struct {
	Key        string
	Value      string
	Expiration time.Duration
}

// Ensure MockCache implements Cache interface
var _ Cache = (*MockCache)(nil)

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string]string)}
}

func (m *MockCache) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value, Expiration: expiration})
	m.values[key] = value
	return nil
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, key)
	getFunc := m.GetFunc
	v := m.values[key]
	m.mu.Unlock()

	if getFunc != nil {
		return getFunc(ctx, key)
	}
	return v, nil
}

func (m *MockCache) GetMany(ctx context.Context, keys []string) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		v, err := m.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DelCalls = append(m.DelCalls, keys)
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MockCache) Close() error {
	return nil
}
