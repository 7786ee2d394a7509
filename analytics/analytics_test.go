package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eringen/folio/store"
)

type memSettings struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memSettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func TestInitSalt(t *testing.T) {
	s := &memSettings{data: map[string]string{}}
	if err := InitSalt(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	first := s.data[SaltKey]
	if len(first) != 64 {
		t.Fatalf("salt = %q", first)
	}
	h := HashIP("1.2.3.4")

	if err := InitSalt(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if s.sets != 1 || s.data[SaltKey] != first {
		t.Error("existing salt should be reused")
	}
	if HashIP("1.2.3.4") != h {
		t.Error("hash should be stable for the same salt")
	}

	other := &memSettings{data: map[string]string{SaltKey: "fixed"}}
	if err := InitSalt(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	if HashIP("1.2.3.4") == h {
		t.Error("hash should change with the salt")
	}
}

type failingSettings struct{}

func (failingSettings) Get(context.Context, string) (string, error) { return "", errors.New("boom") }
func (failingSettings) Set(context.Context, string, string) error    { return nil }

func TestInitSaltError(t *testing.T) {
	if err := InitSalt(context.Background(), failingSettings{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestHashes(t *testing.T) {
	if got := HashIP("10.0.0.1"); len(got) != 16 {
		t.Errorf("HashIP length = %d", len(got))
	}
	if HashIP("10.0.0.1") == HashIP("10.0.0.2") {
		t.Error("different ips should hash differently")
	}
	if VisitorID("10.0.0.1", "a") == VisitorID("10.0.0.1", "b") {
		t.Error("different agents should give different visitors")
	}
	if VisitorID("10.0.0.1", "a") == HashIP("10.0.0.1") {
		t.Error("visitor id should include the user agent")
	}
}

func TestIsBot(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"", true},
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"curl/8.0.1", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", false},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148 Safari/604.1", false},
	}
	for _, tt := range tests {
		if got := IsBot(tt.ua); got != tt.want {
			t.Errorf("IsBot(%q) = %v, want %v", tt.ua, got, tt.want)
		}
	}
}

func TestBotName(t *testing.T) {
	tests := map[string]string{
		"Mozilla/5.0 (compatible; Googlebot/2.1)": "Googlebot",
		"Mozilla/5.0 (compatible; bingbot/2.0)":   "Bingbot",
		"SomeRandomBot/1.0":                       "Other Bot",
		"Mozilla/5.0 Firefox/120.0":               "Unknown",
		"my-crawler":                              "Generic Crawler",
	}
	for ua, want := range tests {
		if got := BotName(ua); got != want {
			t.Errorf("BotName(%q) = %q, want %q", ua, got, want)
		}
	}
}

func TestParseUserAgent(t *testing.T) {
	b, o, d := ParseUserAgent("Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36")
	if b != "Chrome" || o != "Android" || d != "Mobile" {
		t.Errorf("got %s/%s/%s", b, o, d)
	}
	b, o, d = ParseUserAgent("Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) Mobile Safari/604.1")
	if b != "Safari" || o != "iOS" || d != "Tablet" {
		t.Errorf("got %s/%s/%s", b, o, d)
	}
}

type countingCounter struct {
	mu     sync.Mutex
	counts map[int64]int
	err    error
}

func (c *countingCounter) IncrementViewCount(_ context.Context, id int64) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	c.counts[id]++
	c.mu.Unlock()
	return nil
}

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/120.0"

func TestTrackerDedupes(t *testing.T) {
	c := &countingCounter{counts: map[int64]int{}}
	tr := NewTracker(c, 0)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	var hooked []int64
	tr.OnView = func(id int64) { hooked = append(hooked, id) }

	ctx := context.Background()
	counted, err := tr.Track(ctx, 1, "1.1.1.1", browserUA)
	if err != nil || !counted {
		t.Fatalf("first view: counted=%v err=%v", counted, err)
	}
	counted, _ = tr.Track(ctx, 1, "1.1.1.1", browserUA)
	if counted {
		t.Error("repeat view within window should not count")
	}
	counted, _ = tr.Track(ctx, 2, "1.1.1.1", browserUA)
	if !counted {
		t.Error("another post should count")
	}
	counted, _ = tr.Track(ctx, 1, "2.2.2.2", browserUA)
	if !counted {
		t.Error("another visitor should count")
	}

	now = now.Add(DefaultWindow)
	counted, _ = tr.Track(ctx, 1, "1.1.1.1", browserUA)
	if !counted {
		t.Error("view after the window should count")
	}

	if c.counts[1] != 3 || c.counts[2] != 1 {
		t.Errorf("counts = %v", c.counts)
	}
	if len(hooked) != 4 {
		t.Errorf("OnView calls = %d", len(hooked))
	}
}

func TestTrackerIgnoresBots(t *testing.T) {
	c := &countingCounter{counts: map[int64]int{}}
	tr := NewTracker(c, time.Minute)
	counted, err := tr.Track(context.Background(), 1, "1.1.1.1", "Googlebot/2.1")
	if err != nil || counted {
		t.Errorf("bot: counted=%v err=%v", counted, err)
	}
	if len(c.counts) != 0 || tr.Len() != 0 {
		t.Error("bot views should leave no trace")
	}
}

func TestTrackerReleasesOnError(t *testing.T) {
	c := &countingCounter{counts: map[int64]int{}, err: store.ErrNotFound}
	tr := NewTracker(c, time.Minute)
	if _, err := tr.Track(context.Background(), 9, "1.1.1.1", browserUA); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if tr.Len() != 0 {
		t.Error("failed view should not be remembered")
	}
}

func TestTrackerPrune(t *testing.T) {
	c := &countingCounter{counts: map[int64]int{}}
	tr := NewTracker(c, time.Minute)
	now := time.Now()
	tr.now = func() time.Time { return now }
	tr.Track(context.Background(), 1, "1.1.1.1", browserUA)
	tr.Track(context.Background(), 2, "1.1.1.1", browserUA)
	if tr.Len() != 2 {
		t.Fatalf("len = %d", tr.Len())
	}
	now = now.Add(2 * time.Minute)
	tr.Prune()
	if tr.Len() != 0 {
		t.Errorf("len after prune = %d", tr.Len())
	}
}
