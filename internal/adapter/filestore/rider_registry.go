package filestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// RiderRegistry keeps rider presence in memory. Presence is rebuilt from
// heartbeats, so nothing is written to disk.
type RiderRegistry struct {
	mu     sync.RWMutex
	riders map[string]*domain.Rider
}

func NewRiderRegistry() *RiderRegistry {
	return &RiderRegistry{riders: make(map[string]*domain.Rider)}
}

func (r *RiderRegistry) Create(ctx context.Context, rider *domain.Rider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rider
	r.riders[rider.ID] = &cp
	return nil
}

func (r *RiderRegistry) FindByID(ctx context.Context, id string) (*domain.Rider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rider, ok := r.riders[id]
	if !ok {
		return nil, domain.ErrRiderNotFound
	}
	cp := *rider
	return &cp, nil
}

func (r *RiderRegistry) Update(ctx context.Context, rider *domain.Rider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.riders[rider.ID]; !ok {
		return domain.ErrRiderNotFound
	}
	cp := *rider
	r.riders[rider.ID] = &cp
	return nil
}

func (r *RiderRegistry) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rider, ok := r.riders[id]
	if !ok {
		return domain.ErrRiderNotFound
	}
	rider.LastSeen = at
	return nil
}

func (r *RiderRegistry) ListAll(ctx context.Context) ([]*domain.Rider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	riders := make([]*domain.Rider, 0, len(r.riders))
	for _, rider := range r.riders {
		cp := *rider
		riders = append(riders, &cp)
	}
	sort.Slice(riders, func(i, j int) bool { return riders[i].Name < riders[j].Name })
	return riders, nil
}

func (r *RiderRegistry) IncrementDeliveries(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rider, ok := r.riders[id]
	if !ok {
		return domain.ErrRiderNotFound
	}
	rider.DeliveriesCompleted++
	return nil
}
