// Package album collapses the separate updates Telegram sends for one
// multi-photo message into a single Group.
package album

import (
	"strconv"
	"sync"
	"time"
)

type Photo struct {
	ChatID  int64
	UserID  int64
	AlbumID string
	Caption string
	FileID  string
}

// Group is one album in arrival order. The caption is the last non-empty
// caption seen.
type Group struct {
	ChatID  int64
	UserID  int64
	Caption string
	FileIDs []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

type Collector struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Group)
	pending  map[string]*pending
	closed   bool
}

type pending struct {
	group Group
	timer *time.Timer
}

func New(opts Options) *Collector {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}
	return &Collector{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pending),
	}
}

// Add buffers p and restarts the album's timer. It reports false for a
// photo that is not part of an album or arrives after Close.
func (c *Collector) Add(p Photo) bool {
	if p.AlbumID == "" || p.FileID == "" {
		return false
	}
	key := strconv.FormatInt(p.ChatID, 10) + ":" + p.AlbumID

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	pg, ok := c.pending[key]
	if !ok {
		pg = &pending{group: Group{ChatID: p.ChatID, UserID: p.UserID}}
		c.pending[key] = pg
	}
	pg.group.FileIDs = append(pg.group.FileIDs, p.FileID)
	if p.Caption != "" {
		pg.group.Caption = p.Caption
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.timer = time.AfterFunc(c.debounce, func() { c.flush(key) })
	return true
}

// Pending returns the number of albums still waiting for their timer.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops all timers and drops albums that have not been flushed.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for key, pg := range c.pending {
		pg.timer.Stop()
		delete(c.pending, key)
	}
}

func (c *Collector) flush(key string) {
	c.mu.Lock()
	pg, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	group := pg.group
	onFlush := c.onFlush
	c.mu.Unlock()

	if onFlush != nil {
		onFlush(group)
	}
}
