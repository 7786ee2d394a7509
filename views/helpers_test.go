package views

import (
	"net/url"
	"testing"
	"time"

	"github.com/eringen/folio/store"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"blog", "post"}, "https://example.com/blog/post/"},
		{"https://example.com/", []string{"projects"}, "https://example.com/projects/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestJoinTags(t *testing.T) {
	got := JoinTags([]store.Tag{{Name: "go"}, {Name: "web"}})
	if got != "go, web" {
		t.Errorf("got %q", got)
	}
	if got := JoinTags(nil); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	if got := FormatDate(&d); got != "Mar 9, 2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := InputDate(&d); got != "2024-03-09" {
		t.Errorf("InputDate = %q", got)
	}
	if FormatDate(nil) != "" || InputDate(&time.Time{}) != "" {
		t.Error("empty dates should render empty")
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
		3 << 30:         "3.0 GB",
	}
	for n, want := range tests {
		if got := FormatSize(n); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestStatusClass(t *testing.T) {
	if got := StatusClass(store.StatusPublished); got != "badge badge-success" {
		t.Errorf("got %q", got)
	}
	if got := StatusClass("unknown"); got != "badge badge-muted" {
		t.Errorf("got %q", got)
	}
}

func TestProficiencyPercent(t *testing.T) {
	for in, want := range map[int]int{-1: 0, 0: 0, 3: 60, 5: 100, 9: 100} {
		if got := ProficiencyPercent(in); got != want {
			t.Errorf("ProficiencyPercent(%d) = %d", in, got)
		}
	}
}

func TestPageURL(t *testing.T) {
	q := url.Values{"tag": {"go"}, "page": {"2"}}
	if got := PageURL("/blog/", q, 3); got != "/blog/?page=3&tag=go" {
		t.Errorf("got %q", got)
	}
	if got := PageURL("/blog/", q, 1); got != "/blog/?tag=go" {
		t.Errorf("got %q", got)
	}
	if got := PageURL("/blog/", nil, 1); got != "/blog/" {
		t.Errorf("got %q", got)
	}
	if q.Get("page") != "2" {
		t.Error("input values should not be modified")
	}
}

func TestPaginationOf(t *testing.T) {
	p := store.NewPage([]int{1, 2}, 25, 10, 10)
	got := PaginationOf(p)
	if got.Page != 2 || got.TotalPages != 3 || !got.HasNext || !got.HasPrev {
		t.Errorf("got %+v", got)
	}
}
