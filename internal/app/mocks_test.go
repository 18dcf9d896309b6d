package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/pscheid92/ckksgate/internal/domain"
)

// --- Mock implementations ---

type mockProvider struct {
	contextFn      func(ctx context.Context) (domain.CryptoContext, error)
	publicExportFn func(cc domain.CryptoContext) ([]byte, error)
	bounds         domain.VectorBounds
}

func (m *mockProvider) Context(ctx context.Context) (domain.CryptoContext, error) {
	if m.contextFn != nil {
		return m.contextFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProvider) PublicExport(cc domain.CryptoContext) ([]byte, error) {
	if m.publicExportFn != nil {
		return m.publicExportFn(cc)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProvider) Bounds() domain.VectorBounds {
	return m.bounds
}

func (m *mockProvider) Describe() (domain.ProviderInfo, error) {
	return domain.ProviderInfo{Mode: "mock"}, nil
}

func (m *mockProvider) Check(_ context.Context) error {
	return nil
}

type mockStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	gets   int
	putErr error
	getErr error
	pingFn func(ctx context.Context) error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Put(_ context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[id] = data
	return nil
}

func (m *mockStore) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, id)
	}
	return data, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}
