package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
)

var (
	ErrNotFound     = errors.New("dish not found")
	ErrDuplicateKey = errors.New("dishId already exists")
)

// Repository is the document-store contract the dish service depends on.
// Two implementations exist: MemoryRepo (tests, local dev without Mongo)
// and MongoRepo.
type Repository interface {
	Insert(ctx context.Context, d *dish.Dish) error
	Get(ctx context.Context, dishID string) (*dish.Dish, error)
	List(ctx context.Context, f dish.Filter) ([]*dish.Dish, error)
	Update(ctx context.Context, dishID string, p dish.Patch) (*dish.Dish, error)
	TogglePublished(ctx context.Context, dishID string) (*dish.Dish, error)
	Delete(ctx context.Context, dishID string) error
	Count(ctx context.Context) (int64, error)
}

// MemoryRepo keeps dishes in a map guarded by a mutex. TogglePublished flips
// under the lock, so the read-modify-write is atomic with respect to other
// writers on the same key.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]dish.Dish
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]dish.Dish)}
}

func (m *MemoryRepo) Insert(_ context.Context, d *dish.Dish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[d.DishID]; ok {
		return ErrDuplicateKey
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	m.store[d.DishID] = *d
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, dishID string) (*dish.Dish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[dishID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryRepo) List(_ context.Context, f dish.Filter) ([]*dish.Dish, error) {
	m.mu.RLock()
	out := make([]*dish.Dish, 0, len(m.store))
	search := strings.ToLower(f.Search)
	for _, d := range m.store {
		if f.Published != nil && d.IsPublished != *f.Published {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.DishName), search) {
			continue
		}
		d := d
		out = append(out, &d)
	}
	m.mu.RUnlock()

	field, asc := f.Sort()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !asc {
			a, b = b, a
		}
		switch field {
		case "dishId":
			return a.DishID < b.DishID
		case "dishName":
			return a.DishName < b.DishName
		case "isPublished":
			return !a.IsPublished && b.IsPublished
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, dishID string, p dish.Patch) (*dish.Dish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[dishID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.DishName != nil {
		d.DishName = *p.DishName
	}
	if p.ImageURL != nil {
		d.ImageURL = *p.ImageURL
	}
	if p.IsPublished != nil {
		d.IsPublished = *p.IsPublished
	}
	d.UpdatedAt = time.Now().UTC()
	m.store[dishID] = d
	return &d, nil
}

func (m *MemoryRepo) TogglePublished(_ context.Context, dishID string) (*dish.Dish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[dishID]
	if !ok {
		return nil, ErrNotFound
	}
	d.IsPublished = !d.IsPublished
	d.UpdatedAt = time.Now().UTC()
	m.store[dishID] = d
	return &d, nil
}

func (m *MemoryRepo) Delete(_ context.Context, dishID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[dishID]; !ok {
		return ErrNotFound
	}
	delete(m.store, dishID)
	return nil
}

func (m *MemoryRepo) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}
