// Package analytics counts post views without storing personal data.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eringen/folio/store"
)

// SaltKey is the settings key holding the hashing salt.
const SaltKey = "hash_salt"

// Settings is the key/value store the salt lives in. Get returns
// store.ErrNotFound for a missing key.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

var salt struct {
	mu    sync.RWMutex
	value string
}

// InitSalt loads the per-installation salt, generating and storing one on
// first run. Call it at startup before HashIP or VisitorID.
func InitSalt(ctx context.Context, settings Settings) error {
	s, err := settings.Get(ctx, SaltKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read hash salt: %w", err)
	}
	if s == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		s = hex.EncodeToString(b)
		if err := settings.Set(ctx, SaltKey, s); err != nil {
			return fmt.Errorf("store hash salt: %w", err)
		}
	}
	salt.mu.Lock()
	salt.value = s
	salt.mu.Unlock()
	return nil
}

func getSalt() string {
	salt.mu.RLock()
	defer salt.mu.RUnlock()
	return salt.value
}

func hash(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(getSalt() + strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// HashIP returns a salted SHA-256 of ip, shortened to 16 hex characters.
func HashIP(ip string) string {
	return hash(ip)
}

// VisitorID derives an anonymous visitor id from ip and user agent.
func VisitorID(ip, userAgent string) string {
	return hash(ip, userAgent)
}

// ParseUserAgent extracts browser, OS and device from a User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// more specific patterns first
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android UAs contain "linux"
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"yandex", "baidu", "facebookexternalhit",
	"headlesschrome", "curl/", "wget/", "python-requests", "go-http-client",
}

// IsBot reports whether ua looks like a crawler or script. An empty user
// agent counts as a bot.
func IsBot(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	ua = strings.ToLower(ua)
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// known bots, most specific first
var botNames = []struct{ pattern, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
}

// BotName names the crawler behind ua: "Other Bot" for an unrecognized
// bot and "Unknown" when ua does not look like one.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range botNames {
		if strings.Contains(ua, b.pattern) {
			return b.name
		}
	}
	if strings.Contains(ua, "bot") {
		return "Other Bot"
	}
	return "Unknown"
}
