package descriptor

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	domain "github.com/turtacn/molfp/internal/domain/descriptor"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) UpsertMolecule(ctx context.Context, mol *domain.StoredMolecule) error {
	args := m.Called(ctx, mol)
	return args.Error(0)
}

func (m *mockRepository) SaveDescriptors(ctx context.Context, id uuid.UUID, ds []domain.StoredDescriptor) error {
	args := m.Called(ctx, id, ds)
	return args.Error(0)
}

func (m *mockRepository) FindDescriptor(ctx context.Context, canonical, family string) (*domain.StoredDescriptor, error) {
	args := m.Called(ctx, canonical, family)
	d, _ := args.Get(0).(*domain.StoredDescriptor)
	return d, args.Error(1)
}

func (m *mockRepository) ListDescriptors(ctx context.Context, family string, limit, offset int) ([]domain.StoredDescriptor, error) {
	args := m.Called(ctx, family, limit, offset)
	ds, _ := args.Get(0).([]domain.StoredDescriptor)
	return ds, args.Error(1)
}

func (m *mockRepository) DeleteMolecule(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) Upsert(ctx context.Context, family string, ds []domain.StoredDescriptor) error {
	return m.Called(ctx, family, ds).Error(0)
}

func (m *mockIndex) Search(ctx context.Context, family, encoded string, topK int) ([]domain.StoredDescriptor, error) {
	args := m.Called(ctx, family, encoded, topK)
	ds, _ := args.Get(0).([]domain.StoredDescriptor)
	return ds, args.Error(1)
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []*kafkainfra.ProducerMessage
	err  error
}

func (p *mockPublisher) Publish(_ context.Context, msg *kafkainfra.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *mockPublisher) byTopic(topic string) []*kafkainfra.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*kafkainfra.ProducerMessage
	for _, m := range p.msgs {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// memoryCache is an in-process Cache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	calls   int
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string]string{}} }

func (c *memoryCache) GetOrCompute(ctx context.Context, family, structure string, compute func(context.Context) (string, error)) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := family + "|" + structure
	if v, ok := c.entries[key]; ok {
		return v, true, nil
	}
	c.calls++
	v, err := compute(ctx)
	if err != nil {
		return "", false, err
	}
	c.entries[key] = v
	return v, false, nil
}

func (c *memoryCache) InvalidateFamily(_ context.Context, family string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for key := range c.entries {
		if strings.HasPrefix(key, family+":") {
			delete(c.entries, key)
			n++
		}
	}
	return n, nil
}

type memoryClaims struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
}

func newMemoryClaims() *memoryClaims { return &memoryClaims{held: map[string]bool{}} }

func (c *memoryClaims) Claim(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[id] {
		return false, nil
	}
	c.held[id] = true
	return true, nil
}

func (c *memoryClaims) Release(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, id)
	c.released = append(c.released, id)
	return nil
}

//Personal.AI order the ending
