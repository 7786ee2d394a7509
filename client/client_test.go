package client

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio"
	"github.com/eringen/folio/store"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Sup3r-Secret!"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	app := folio.New(folio.SiteConfig{
		DatabasePath:  filepath.Join(dir, "folio.db"),
		UploadDir:     filepath.Join(dir, "static"),
		SessionSecret: "test-session-secret",
		JWTSecret:     "test-jwt-secret",
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		SeedContent:   true,
		APIRateLimit:  1000,
	}, folio.ViewFuncs{})
	require.NoError(t, app.Init(context.Background()))
	srv := httptest.NewServer(app.Echo)
	t.Cleanup(func() {
		srv.Close()
		app.Close()
	})
	return New(srv.URL)
}

func login(t *testing.T, c *Client) {
	t.Helper()
	_, err := c.Login(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestLogin(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	_, err := c.Login(ctx, adminEmail, "wrong-password")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, c.IsAuthenticated())

	u, err := c.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, u.Email)
	assert.Equal(t, store.RoleAdmin, u.Role)
	assert.True(t, c.IsAuthenticated())
	assert.NotEmpty(t, c.Token())

	c.Logout()
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.Token())
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New("http://example.invalid")
	c.now = func() time.Time { return now }
	c.token, c.expires = "abc", now.Add(time.Hour)

	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "abc", c.Token())

	now = now.Add(2 * time.Hour)
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.Token())
}

func TestWritesNeedToken(t *testing.T) {
	c := newTestServer(t)
	_, err := c.CreateBlog(context.Background(), BlogInput{Title: ptr("Nope"), Content: ptr("body")})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.NotEmpty(t, apiErr.Code)
}

func TestBlogCollection(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	blogs := c.Blogs()

	require.NoError(t, blogs.Init(ctx))
	st := blogs.State()
	assert.Len(t, st.Data, 3)
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)

	hits := blogs.Search("typescript")
	require.NotEmpty(t, hits)
	assert.Equal(t, "advanced-typescript-patterns", hits[0].Slug)
	assert.Len(t, blogs.Search(""), 3)

	post, ok := blogs.BySlug("advanced-typescript-patterns")
	require.True(t, ok)
	related := blogs.Related(post, 5)
	require.Len(t, related, 1)
	assert.Equal(t, "building-scalable-web-applications", related[0].Slug)

	_, err := blogs.Create(ctx, BlogInput{Title: ptr("Unauthorized"), Content: ptr("x")})
	require.Error(t, err)
	assert.Error(t, blogs.State().Err)

	login(t, c)
	created, err := blogs.Create(ctx, BlogInput{
		Title:   ptr("Go Generics in Practice"),
		Content: ptr("# Generics\n\nType parameters."),
		Status:  ptr(store.StatusPublished),
		Tags:    []string{"Go", "Best Practices"},
	})
	require.NoError(t, err)
	assert.Equal(t, "go-generics-in-practice", created.Slug)
	assert.Len(t, blogs.Data(), 4)

	updated, err := blogs.UpdateByID(ctx, created.ID, BlogInput{Title: ptr("Go Generics")})
	require.NoError(t, err)
	got, ok := blogs.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Go Generics", got.Title)
	assert.Equal(t, updated.Slug, got.Slug)

	require.NoError(t, blogs.DeleteByID(ctx, created.ID))
	_, ok = blogs.Get(created.ID)
	assert.False(t, ok)

	blogs.Reset()
	assert.Empty(t, blogs.Data())
}

func TestProjectCollection(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	projects := c.Projects()
	require.NoError(t, projects.LoadAll(ctx))

	assert.Len(t, projects.Data(), 4)
	assert.Len(t, projects.ByStatus(store.ProjectInProgress), 1)
	assert.Len(t, projects.ByTechnology("sqlite"), 2)
	assert.Len(t, projects.Featured(), 3)

	hits := projects.Search("weather")
	require.NotEmpty(t, hits)
	assert.Equal(t, "weather-analytics-platform", hits[0].Slug)

	login(t, c)
	p, err := projects.Create(ctx, ProjectInput{
		Title:        ptr("CLI Toolkit"),
		Description:  ptr("Small command line helpers."),
		Technologies: &[]string{"Go"},
		Status:       ptr("planning"),
	})
	require.NoError(t, err)
	assert.Equal(t, store.StringList{"Go"}, p.Technologies)
	assert.Len(t, projects.ByTechnology("go"), 2)
}

func TestSkillsAreReadOnly(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	skills := c.Skills()
	require.NoError(t, skills.Init(ctx))

	assert.NotEmpty(t, skills.ByCategory("frontend"))
	assert.Contains(t, skills.Categories(), "database")
	assert.NotEmpty(t, skills.ByProficiency(5))

	_, err := skills.Create(ctx, struct{}{})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, skills.DeleteByID(ctx, 1), ErrReadOnly)
}

func TestMediaRoundTrip(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	login(t, c)

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := range 40 {
		img.Set(x, x%30, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	results, err := c.UploadMedia(ctx,
		UploadFile{Name: "Red Line.PNG", ContentType: "image/png", Data: bytes.NewReader(buf.Bytes())},
		UploadFile{Name: "evil.html", ContentType: "text/html", Data: bytes.NewReader([]byte("<script></script>"))},
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0].File)
	assert.Equal(t, "image/png", results[0].File.MimeType)
	assert.Nil(t, results[1].File)
	assert.NotEmpty(t, results[1].Error)

	id := results[0].File.ID
	m, err := c.UpdateMedia(ctx, id, MediaPatch{AltText: ptr("a red line")})
	require.NoError(t, err)
	assert.Equal(t, "a red line", m.AltText)

	l, err := c.ListMedia(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Meta.Total)

	n, err := c.DeleteMediaBatch(ctx, []int64{id, id + 100})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.GetMedia(ctx, id)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSiteAndSearch(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	results, err := c.Search(ctx, "typescript", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	tags, err := c.Tags(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tags)

	id, err := c.SendContact(ctx, ContactInput{Name: "Ada", Email: "ada@example.com", Message: "Hello there, nice site!"})
	require.NoError(t, err)
	assert.Positive(t, id)

	login(t, c)
	cfg, err := c.UpdateSite(ctx, store.SiteConfigPatch{SiteTitle: ptr("Ada's Folio")})
	require.NoError(t, err)
	assert.Equal(t, "Ada's Folio", cfg.SiteTitle)

	cfg, err = c.Site(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada's Folio", cfg.SiteTitle)
}

func TestNonEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetBlog(context.Background(), 1)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestRelatedRanking(t *testing.T) {
	day := func(d int) *time.Time {
		t := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	tags := func(names ...string) []store.Tag {
		out := make([]store.Tag, len(names))
		for i, n := range names {
			out[i] = store.Tag{Name: n}
		}
		return out
	}
	base := store.BlogPost{ID: 1, Tags: tags("go", "sql", "web")}
	blogs := &BlogCollection{&Collection[store.BlogPost, BlogInput, BlogInput]{
		id: func(p store.BlogPost) int64 { return p.ID },
		data: []store.BlogPost{
			base,
			{ID: 2, Tags: tags("go"), PublishedAt: day(5)},
			{ID: 3, Tags: tags("Go", "SQL"), PublishedAt: day(1)},
			{ID: 4, Tags: tags("rust")},
			{ID: 5, Tags: tags("web"), PublishedAt: day(9)},
		},
	}}

	got := blogs.Related(base, 3)
	ids := make([]int64, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	assert.Equal(t, []int64{3, 5, 2}, ids)
	assert.Len(t, blogs.Related(base, 1), 1)
	assert.Empty(t, blogs.Related(store.BlogPost{ID: 9}, 3))
}

func TestBlogSearchScoring(t *testing.T) {
	tests := []struct {
		name string
		post store.BlogPost
		want int
	}{
		{"exact title", store.BlogPost{Title: "Go"}, 100},
		{"title contains", store.BlogPost{Title: "Learning Go"}, 50},
		{"tag", store.BlogPost{Title: "x", Tags: []store.Tag{{Name: "Golang"}}}, 30},
		{"excerpt and content", store.BlogPost{Title: "x", Excerpt: "go on", Content: "go"}, 30},
		{"no match", store.BlogPost{Title: "Rust"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreBlog(tt.post, "go"))
		})
	}
}
