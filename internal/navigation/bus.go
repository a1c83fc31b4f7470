// Package navigation carries tab and sub-route change notifications between
// independently mounted role shells. The bus holds subscribers only, never the
// current navigation state.
package navigation

import (
	"sync"
	"sync/atomic"
)

// TabChange asks shells to switch to TabID
type TabChange struct {
	TabID string
}

// SubRouteChange asks the shell whose active tab is TabID to open Path
type SubRouteChange struct {
	TabID string
	Path  string
}

type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// channel is a synchronous observer registry for one kind of notification
type channel[T any] struct {
	mu   sync.RWMutex
	subs []*subscriber[T]
}

func (c *channel[T]) subscribe(fn func(T)) func() {
	sub := &subscriber[T]{fn: fn}
	sub.active.Store(true)

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)

			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s == sub {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// publish calls every subscriber registered when the call began, in
// registration order, skipping any unsubscribed mid-dispatch.
func (c *channel[T]) publish(event T) {
	c.mu.RLock()
	snapshot := make([]*subscriber[T], len(c.subs))
	copy(snapshot, c.subs)
	c.mu.RUnlock()

	for _, sub := range snapshot {
		if sub.active.Load() {
			sub.fn(event)
		}
	}
}

func (c *channel[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Bus has two independent channels. The zero value is ready to use.
type Bus struct {
	tabs      channel[TabChange]
	subRoutes channel[SubRouteChange]
}

func NewBus() *Bus {
	return &Bus{}
}

// PublishTabChange synchronously notifies every tab subscriber
func (b *Bus) PublishTabChange(tabID string) {
	b.tabs.publish(TabChange{TabID: tabID})
}

// SubscribeTabChange registers cb and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) SubscribeTabChange(cb func(tabID string)) (unsubscribe func()) {
	if cb == nil {
		return func() {}
	}
	return b.tabs.subscribe(func(e TabChange) { cb(e.TabID) })
}

// PublishSubRouteChange synchronously notifies every sub-route subscriber.
// Subscribers decide for themselves whether tabID concerns them.
func (b *Bus) PublishSubRouteChange(tabID, path string) {
	b.subRoutes.publish(SubRouteChange{TabID: tabID, Path: path})
}

func (b *Bus) SubscribeSubRouteChange(cb func(tabID, path string)) (unsubscribe func()) {
	if cb == nil {
		return func() {}
	}
	return b.subRoutes.subscribe(func(e SubRouteChange) { cb(e.TabID, e.Path) })
}

// Subscribers reports the current tab and sub-route subscriber counts
func (b *Bus) Subscribers() (tabs, subRoutes int) {
	return b.tabs.len(), b.subRoutes.len()
}
