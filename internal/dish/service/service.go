package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/repository"
)

var (
	ErrNotFound  = errors.New("dish not found")
	ErrDuplicate = errors.New("dish already exists")
)

// Broadcaster fans dish mutation events out to connected dashboard sessions.
// Calls are fire-and-forget: delivery failures never affect the mutation.
type Broadcaster interface {
	DishUpdated(d *dish.Dish)
	DishDeleted(dishID string)
}

// Service defines the dish business operations used by the handler layer.
type Service interface {
	List(ctx context.Context, f dish.Filter) ([]*dish.Dish, error)
	Get(ctx context.Context, dishID string) (*dish.Dish, error)
	Create(ctx context.Context, d *dish.Dish) (*dish.Dish, error)
	Update(ctx context.Context, dishID string, p dish.Patch) (*dish.Dish, error)
	TogglePublished(ctx context.Context, dishID string) (*dish.Dish, error)
	Delete(ctx context.Context, dishID string) error
}

// New returns a Service over the given repository. The broadcaster is an
// explicit dependency wired at startup; pass nil to run without live updates
// (seed script, tests that don't care about events).
func New(repo repository.Repository, bc Broadcaster) Service {
	return &dishService{repo: repo, bc: bc}
}

type dishService struct {
	repo repository.Repository
	bc   Broadcaster
}

func (s *dishService) List(ctx context.Context, f dish.Filter) ([]*dish.Dish, error) {
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	return out, nil
}

func (s *dishService) Get(ctx context.Context, dishID string) (*dish.Dish, error) {
	d, err := s.repo.Get(ctx, dishID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return d, nil
}

func (s *dishService) Create(ctx context.Context, d *dish.Dish) (*dish.Dish, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return nil, mapRepoErr(err)
	}
	s.dishUpdated(d)
	return d, nil
}

func (s *dishService) Update(ctx context.Context, dishID string, p dish.Patch) (*dish.Dish, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d, err := s.repo.Update(ctx, dishID, p)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.dishUpdated(d)
	return d, nil
}

// TogglePublished flips the persisted isPublished value. The negation is
// delegated to the repository so the read-modify-write is atomic with respect
// to concurrent toggles on the same dish; no client-supplied target value is
// accepted.
func (s *dishService) TogglePublished(ctx context.Context, dishID string) (*dish.Dish, error) {
	d, err := s.repo.TogglePublished(ctx, dishID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.dishUpdated(d)
	return d, nil
}

func (s *dishService) Delete(ctx context.Context, dishID string) error {
	if err := s.repo.Delete(ctx, dishID); err != nil {
		return mapRepoErr(err)
	}
	if s.bc != nil {
		s.bc.DishDeleted(dishID)
	}
	return nil
}

// dishUpdated is the post-commit notification step: it runs only after a
// successful store write and its outcome is ignored.
func (s *dishService) dishUpdated(d *dish.Dish) {
	if s.bc != nil {
		s.bc.DishUpdated(d)
	}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return ErrDuplicate
	default:
		return err
	}
}
