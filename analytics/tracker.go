package analytics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultWindow is how long a visitor's view of a post counts once.
const DefaultWindow = 30 * time.Minute

// ViewCounter persists a counted view.
type ViewCounter interface {
	IncrementViewCount(ctx context.Context, id int64) error
}

// Tracker counts post views, skipping bots and repeat views by the same
// visitor within the window.
type Tracker struct {
	counter ViewCounter
	window  time.Duration
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time

	// OnView, when set, is called after each counted view.
	OnView func(postID int64)
}

// NewTracker creates a Tracker. A window of zero uses DefaultWindow.
func NewTracker(counter ViewCounter, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		counter: counter,
		window:  window,
		now:     time.Now,
		seen:    make(map[string]time.Time),
	}
}

// Track records a view of postID. It reports whether the view was counted.
func (t *Tracker) Track(ctx context.Context, postID int64, ip, userAgent string) (bool, error) {
	if IsBot(userAgent) {
		log.Debug().Str("bot", BotName(userAgent)).Int64("post_id", postID).Msg("bot view ignored")
		return false, nil
	}
	key := VisitorID(ip, userAgent) + ":" + strconv.FormatInt(postID, 10)
	if !t.claim(key) {
		return false, nil
	}
	if err := t.counter.IncrementViewCount(ctx, postID); err != nil {
		t.release(key)
		return false, err
	}
	if t.OnView != nil {
		t.OnView(postID)
	}
	browser, os, device := ParseUserAgent(userAgent)
	log.Debug().Int64("post_id", postID).Str("browser", browser).Str("os", os).Str("device", device).Msg("view counted")
	return true, nil
}

// claim marks key as seen, returning false if it was seen within the window.
func (t *Tracker) claim(key string) bool {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.seen[key]; ok && now.Sub(last) < t.window {
		return false
	}
	t.seen[key] = now
	return true
}

func (t *Tracker) release(key string) {
	t.mu.Lock()
	delete(t.seen, key)
	t.mu.Unlock()
}

// Len returns the number of remembered visitor/post pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Prune forgets pairs older than the window.
func (t *Tracker) Prune() {
	cutoff := t.now().Add(-t.window)
	t.mu.Lock()
	for k, last := range t.seen {
		if !last.After(cutoff) {
			delete(t.seen, k)
		}
	}
	t.mu.Unlock()
}

// Run prunes once per window until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Prune()
		}
	}
}
