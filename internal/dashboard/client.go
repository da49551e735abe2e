package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/internal/realtime"
)

// DefaultGraceWindow is how long a toggled dish stays in the pending-set to
// absorb the broadcast echo of the client's own command.
const DefaultGraceWindow = time.Second

// Notifier receives user-visible messages from the client.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Client holds the locally cached dish list and reconciles broadcast events
// against its own in-flight toggle commands.
//
// The pending-set maps dishId to the grace-window timer scheduled after a
// successful toggle. While a key is pending, an incoming dishUpdated event
// for it is presumed to be the echo of this client's own command and its
// remote-change notification is suppressed. The window is a heuristic: an
// echo arriving after it closes is reported as a remote change.
type Client struct {
	api    *APIClient
	notify Notifier
	grace  time.Duration

	mu      sync.Mutex
	order   []string              // dishIds in list order
	cache   map[string]*dish.Dish // keyed by dishId
	pending map[string]*time.Timer
}

// Option configures a Client.
type Option func(*Client)

// WithGraceWindow overrides the pending-set grace window (tests use a short one).
func WithGraceWindow(d time.Duration) Option {
	return func(c *Client) { c.grace = d }
}

func NewClient(api *APIClient, n Notifier, opts ...Option) *Client {
	c := &Client{
		api:     api,
		notify:  n,
		grace:   DefaultGraceWindow,
		cache:   make(map[string]*dish.Dish),
		pending: make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Refresh replaces the local cache with the server's current list.
func (c *Client) Refresh(ctx context.Context) error {
	dishes, err := c.api.ListDishes(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.cache = make(map[string]*dish.Dish, len(dishes))
	for _, d := range dishes {
		c.order = append(c.order, d.DishID)
		c.cache[d.DishID] = d
	}
	return nil
}

// Dishes returns the cached list in order.
func (c *Client) Dishes() []*dish.Dish {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*dish.Dish, 0, len(c.order))
	for _, id := range c.order {
		if d, ok := c.cache[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}

// TogglePublished runs the client side of the toggle protocol:
//
//  1. mark the dish pending
//  2. issue the command; on success adopt the server-confirmed isPublished
//     (never a local flip-and-hope)
//  3. schedule pending removal after the grace window
//  4. on failure clear pending immediately and leave the cache untouched
func (c *Client) TogglePublished(ctx context.Context, dishID string) error {
	c.markPending(dishID)

	d, err := c.api.TogglePublished(ctx, dishID)
	if err != nil {
		c.clearPending(dishID)
		c.notify.Notify(fmt.Sprintf("Failed to toggle dish: %v", err))
		return err
	}

	c.mu.Lock()
	if cached, ok := c.cache[d.DishID]; ok {
		cached.IsPublished = d.IsPublished
		cached.UpdatedAt = d.UpdatedAt
	}
	c.mu.Unlock()

	c.notify.Notify(fmt.Sprintf("Dish %s successfully!", publishedWord(d.IsPublished)))
	c.scheduleRelease(dishID)
	return nil
}

// HandleEvent merges a broadcast event into the cache and decides whether the
// user should be told about it.
func (c *Client) HandleEvent(env *realtime.Envelope) error {
	switch env.Event {
	case realtime.EventDishUpdated:
		var d dish.Dish
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return fmt.Errorf("dishUpdated payload: %w", err)
		}
		echo := c.isPending(d.DishID)
		c.merge(&d)
		if !echo && d.DishName != "" {
			c.notify.Notify(fmt.Sprintf("Dish %q was %s remotely!", d.DishName, publishedWord(d.IsPublished)))
		}
		return nil
	case realtime.EventDishDeleted:
		var p realtime.DeletedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("dishDeleted payload: %w", err)
		}
		// deletions are never suppressed: there is no optimistic local delete
		name := c.remove(p.DishID)
		if name == "" {
			name = p.DishID
		}
		c.notify.Notify(fmt.Sprintf("Dish %q was removed remotely", name))
		return nil
	default:
		return nil
	}
}

// Run pumps listener events into HandleEvent until the context is cancelled
// or the connection drops.
func (c *Client) Run(ctx context.Context, l *Listener) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		env, err := l.Next()
		if err != nil {
			return err
		}
		if err := c.HandleEvent(env); err != nil {
			return err
		}
	}
}

// merge replaces the cached record wholesale, appending unknown dishes.
func (c *Client) merge(d *dish.Dish) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[d.DishID]; !ok {
		c.order = append(c.order, d.DishID)
	}
	c.cache[d.DishID] = d
}

func (c *Client) remove(dishID string) (name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.cache[dishID]
	if !ok {
		return ""
	}
	name = d.DishName
	delete(c.cache, dishID)
	for i, id := range c.order {
		if id == dishID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return name
}

// markPending adds the key to the pending-set. A repeated toggle on a key
// that is already pending overwrites the entry without stopping the earlier
// timer; the earliest timer to fire clears the key.
func (c *Client) markPending(dishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[dishID] = nil
}

func (c *Client) clearPending(dishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.pending[dishID]; t != nil {
		t.Stop()
	}
	delete(c.pending, dishID)
}

func (c *Client) scheduleRelease(dishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[dishID]; !ok {
		return
	}
	c.pending[dishID] = time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		delete(c.pending, dishID)
		c.mu.Unlock()
	})
}

func (c *Client) isPending(dishID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[dishID]
	return ok
}

func publishedWord(published bool) string {
	if published {
		return "published"
	}
	return "unpublished"
}
