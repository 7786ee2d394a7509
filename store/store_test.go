package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/apperr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	ctx := context.Background()

	s1, err := Open(ctx, Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, Options{Path: path})
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Check(ctx))

	var fk int
	require.NoError(t, s2.DB().QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}

func TestStringListRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   StringList
		want StringList
	}{
		{"nil", nil, StringList{}},
		{"empty", StringList{}, StringList{}},
		{"ordered", StringList{"Go", "SQLite", "Go"}, StringList{"Go", "SQLite", "Go"}},
		{"unicode", StringList{"naïve", "日本"}, StringList{"naïve", "日本"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.in.Value()
			require.NoError(t, err)
			var out StringList
			require.NoError(t, out.Scan(v))
			assert.Equal(t, tt.want, out)
			assert.NotNil(t, out)
		})
	}

	var out StringList
	require.NoError(t, out.Scan(nil))
	assert.Equal(t, StringList{}, out)
	assert.Error(t, out.Scan(42))
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		total, limit, offset int
		page, pages          int
		next, prev           bool
	}{
		{0, 10, 0, 1, 0, false, false},
		{25, 10, 0, 1, 3, true, false},
		{25, 10, 10, 2, 3, true, true},
		{25, 10, 20, 3, 3, false, true},
		{5, 0, 0, 1, 1, false, false},
		{500, 1000, 0, 1, 5, true, false},
	}
	for _, tt := range tests {
		p := NewPage([]int{}, tt.total, tt.limit, tt.offset)
		assert.Equal(t, tt.page, p.Page, "page %+v", tt)
		assert.Equal(t, tt.pages, p.TotalPages, "pages %+v", tt)
		assert.Equal(t, tt.next, p.HasNext, "next %+v", tt)
		assert.Equal(t, tt.prev, p.HasPrev, "prev %+v", tt)
	}
	assert.Equal(t, MaxLimit, NewPage([]int{}, 0, 1000, 0).PerPage)
	assert.Equal(t, DefaultLimit, NewPage[int](nil, 0, 0, 0).PerPage)
	assert.NotNil(t, NewPage[int](nil, 0, 0, 0).Data)
}

func TestProjectScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Projects.Create(ctx, ProjectInput{Title: "X", Slug: "x", Technologies: []string{"Go"}})
	require.NoError(t, err)

	got, err := s.Projects.GetBySlug(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, StringList{"Go"}, got.Technologies)
	assert.Equal(t, StringList{}, got.Challenges)
	assert.Equal(t, ProjectInProgress, got.Status)

	ok, err := s.Projects.Delete(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Projects.GetByID(ctx, got.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = s.Projects.Delete(ctx, got.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjectCreateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	skill, err := s.Skills.Create(ctx, SkillInput{Name: "Go", Category: "backend", Proficiency: 5})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	in := ProjectInput{
		Title:              "Folio",
		Description:        "A site",
		LongDescription:    "Long",
		Technologies:       []string{"Go", "SQLite"},
		GithubURL:          "https://github.com/x/y",
		Status:             "development",
		Featured:           true,
		StartDate:          &start,
		Challenges:         []string{"a", "b"},
		Solutions:          []string{"c"},
		SkillsDemonstrated: []string{"design"},
		MetaDescription:    "meta",
		Skills:             []string{"go"},
	}
	p, err := s.Projects.Create(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "folio", p.Slug)
	assert.Equal(t, ProjectInProgress, p.Status)
	assert.True(t, p.Featured)
	assert.Equal(t, StringList{"Go", "SQLite"}, p.Technologies)
	assert.Equal(t, StringList{"a", "b"}, p.Challenges)
	assert.Equal(t, StringList{"c"}, p.Solutions)
	assert.Equal(t, StringList{"design"}, p.SkillsDemonstrated)
	require.NotNil(t, p.StartDate)
	assert.True(t, start.Equal(*p.StartDate))
	assert.Nil(t, p.CompletionDate)
	require.Len(t, p.Skills, 1)
	assert.Equal(t, skill.ID, p.Skills[0].ID)
}

func TestProjectUnknownSkillRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Projects.Create(ctx, ProjectInput{Title: "X", Skills: []string{"Nope"}})
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)

	_, err = s.Projects.GetBySlug(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectDeleteRemovesSkillLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Skills.Create(ctx, SkillInput{Name: "Go", Category: "backend"})
	require.NoError(t, err)
	p, err := s.Projects.Create(ctx, ProjectInput{Title: "X", Skills: []string{"Go"}})
	require.NoError(t, err)

	_, err = s.Projects.Delete(ctx, p.ID)
	require.NoError(t, err)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM project_skills WHERE project_id = ?`, p.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestProjectUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Skills.Create(ctx, SkillInput{Name: "Go", Category: "backend"})
	require.NoError(t, err)
	p, err := s.Projects.Create(ctx, ProjectInput{Title: "X", Technologies: []string{"Go"}, Skills: []string{"Go"}})
	require.NoError(t, err)

	same, err := s.Projects.Update(ctx, p.ID, ProjectPatch{})
	require.NoError(t, err)
	assert.Equal(t, p.UpdatedAt, same.UpdatedAt)

	up, err := s.Projects.Update(ctx, p.ID, ProjectPatch{
		Status:       ptr("maintenance"),
		Technologies: &[]string{},
		Skills:       []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, ProjectOnHold, up.Status)
	assert.Equal(t, StringList{}, up.Technologies)
	assert.Empty(t, up.Skills)

	_, err = s.Projects.Update(ctx, p.ID, ProjectPatch{Status: ptr("bogus")})
	var v *apperr.ValidationError
	assert.ErrorAs(t, err, &v)

	_, err = s.Projects.Update(ctx, p.ID, ProjectPatch{Status: ptr("")})
	assert.ErrorAs(t, err, &v)
	got, err := s.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectOnHold, got.Status)

	_, err = s.Projects.Update(ctx, 999, ProjectPatch{Title: ptr("y")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i, title := range []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"} {
		_, err := s.Projects.Create(ctx, ProjectInput{
			Title:        title,
			Featured:     i%2 == 0,
			Status:       ProjectCompleted,
			Technologies: []string{"Go"},
		})
		require.NoError(t, err)
	}

	featured, err := s.Projects.List(ctx, ProjectFilter{Featured: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 3, featured.Total)
	for _, p := range featured.Data {
		assert.True(t, p.Featured)
	}

	page, err := s.Projects.List(ctx, ProjectFilter{Limit: 2, Offset: 2, OrderBy: "title", OrderDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Delta", page.Data[0].Title)

	tech, err := s.Projects.List(ctx, ProjectFilter{Technology: "go"})
	require.NoError(t, err)
	assert.Equal(t, 5, tech.Total)

	search, err := s.Projects.List(ctx, ProjectFilter{Search: "amm"})
	require.NoError(t, err)
	assert.Equal(t, 1, search.Total)

	// An unknown order column falls back to the default order.
	_, err = s.Projects.List(ctx, ProjectFilter{OrderBy: "id; DROP TABLE projects"})
	require.NoError(t, err)
}

func TestSlugUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Posts.Create(ctx, BlogPostInput{Title: "Hello", Slug: "hello", Content: "a"})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPostInput{Title: "Hello again", Slug: "hello", Content: "b"})

	var c *apperr.ConflictError
	require.ErrorAs(t, err, &c)
	assert.Equal(t, "slug", c.Field)

	slug, err := s.Posts.UniqueSlug(ctx, "Hello", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello-2", slug)

	free, err := s.Posts.IsSlugAvailable(ctx, "hello", 0)
	require.NoError(t, err)
	assert.False(t, free)

	auto, err := s.Posts.Create(ctx, BlogPostInput{Title: "Hello", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "hello-2", auto.Slug)
}

func TestBlogPostTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.Posts.Create(ctx, BlogPostInput{
		Title:   "Tagged",
		Content: "body",
		Status:  StatusPublished,
		Tags:    []string{"Go", "go", " SQLite "},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Go", "SQLite"}, p.TagNames())
	require.NotNil(t, p.PublishedAt)

	kept, err := s.Posts.Update(ctx, p.ID, BlogPostPatch{Title: ptr("Renamed")})
	require.NoError(t, err)
	assert.Len(t, kept.Tags, 2)
	assert.Equal(t, "Renamed", kept.Title)

	cleared, err := s.Posts.Update(ctx, p.ID, BlogPostPatch{Tags: []string{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)
	assert.NotNil(t, cleared.Tags)

	tag, err := s.Tags.GetBySlug(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "Go", tag.Name)
}

func TestBlogPostPublishedFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	future := time.Now().Add(48 * time.Hour)

	_, err := s.Posts.Create(ctx, BlogPostInput{Title: "Live", Content: "x", Status: StatusPublished, Tags: []string{"go"}})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPostInput{Title: "Draft", Content: "x", Tags: []string{"go"}})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPostInput{Title: "Scheduled", Content: "x", Status: StatusPublished, PublishedAt: &future})
	require.NoError(t, err)

	pub, err := s.Posts.List(ctx, BlogPostFilter{Published: true})
	require.NoError(t, err)
	require.Equal(t, 1, pub.Total)
	assert.Equal(t, "Live", pub.Data[0].Title)

	all, err := s.Posts.List(ctx, BlogPostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	tagged, err := s.Posts.List(ctx, BlogPostFilter{TagSlug: "go"})
	require.NoError(t, err)
	assert.Equal(t, 2, tagged.Total)

	_, err = s.Posts.GetPublishedBySlug(ctx, "scheduled")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Posts.GetPublishedBySlug(ctx, "draft")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogPostPublishStampsDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.Posts.Create(ctx, BlogPostInput{Title: "D", Content: "x"})
	require.NoError(t, err)
	assert.Nil(t, p.PublishedAt)

	up, err := s.Posts.Update(ctx, p.ID, BlogPostPatch{Status: ptr(StatusPublished)})
	require.NoError(t, err)
	require.NotNil(t, up.PublishedAt)
	assert.WithinDuration(t, time.Now(), *up.PublishedAt, 5*time.Second)

	for _, status := range []string{"", "live"} {
		_, err = s.Posts.Update(ctx, p.ID, BlogPostPatch{Status: ptr(status)})
		var v *apperr.ValidationError
		assert.ErrorAs(t, err, &v, "status %q", status)
	}
	got, err := s.Posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, got.Status)
}

func TestBlogPostRelatedAndViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mk := func(title, category string, tags ...string) BlogPost {
		p, err := s.Posts.Create(ctx, BlogPostInput{Title: title, Content: "x", Category: category,
			Status: StatusPublished, Tags: tags})
		require.NoError(t, err)
		return p
	}
	base := mk("Base", "go", "a", "b")
	two := mk("Two shared", "other", "a", "b")
	one := mk("One shared", "other", "a")
	mk("None", "other", "z")
	lonely := mk("Lonely", "solo")
	sameCat := mk("Same category", "solo")

	rel, err := s.Posts.Related(ctx, base.ID, 3)
	require.NoError(t, err)
	require.Len(t, rel, 2)
	assert.Equal(t, two.ID, rel[0].ID)
	assert.Equal(t, one.ID, rel[1].ID)

	fallback, err := s.Posts.Related(ctx, lonely.ID, 3)
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, sameCat.ID, fallback[0].ID)

	require.NoError(t, s.Posts.IncrementViewCount(ctx, one.ID))
	require.NoError(t, s.Posts.IncrementViewCount(ctx, one.ID))
	assert.ErrorIs(t, s.Posts.IncrementViewCount(ctx, 9999), ErrNotFound)

	top, err := s.Posts.MostViewed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, one.ID, top[0].ID)
	assert.EqualValues(t, 2, top[0].ViewCount)

	stats, err := s.Posts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 6, stats.Published)
	assert.EqualValues(t, 2, stats.TotalViews)

	cats, err := s.Posts.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "other", "solo"}, cats)
}

func TestBlogPostSearchMatchesTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Posts.Create(ctx, BlogPostInput{Title: "Plain", Content: "x", Status: StatusPublished, Tags: []string{"Kubernetes"}})
	require.NoError(t, err)

	res, err := s.Posts.Search(ctx, "kubern", 10)
	require.NoError(t, err)
	assert.Len(t, res, 1)

	empty, err := s.Posts.Search(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBlogPostDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, err := s.Posts.Create(ctx, BlogPostInput{Title: "Gone", Content: "x", Tags: []string{"t"}})
	require.NoError(t, err)

	ok, err := s.Posts.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM blog_post_tags WHERE blog_post_id = ?`, p.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestTagsWithCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Posts.Create(ctx, BlogPostInput{Title: "A", Content: "x", Status: StatusPublished, Tags: []string{"go", "web"}})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPostInput{Title: "B", Content: "x", Status: StatusPublished, Tags: []string{"go"}})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPostInput{Title: "C", Content: "x", Tags: []string{"draft-only"}})
	require.NoError(t, err)

	counts, err := s.Tags.WithCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "go", counts[0].Slug)
	assert.Equal(t, 2, counts[0].PostCount)

	all, err := s.Tags.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSkills(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, in := range []SkillInput{
		{Name: "Go", Category: "backend", Proficiency: 5},
		{Name: "SQL", Category: "backend", Proficiency: 4},
		{Name: "CSS", Category: "frontend", Proficiency: 3},
	} {
		_, err := s.Skills.Create(ctx, in)
		require.NoError(t, err)
	}

	groups, err := s.Skills.ByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "backend", groups[0].Category)
	assert.Equal(t, "Go", groups[0].Skills[0].Name)

	min4, err := s.Skills.List(ctx, SkillFilter{MinProficiency: 4})
	require.NoError(t, err)
	assert.Len(t, min4, 2)

	top, err := s.Skills.Top(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Go", top[0].Name)

	_, err = s.Skills.Create(ctx, SkillInput{Name: "Bad", Category: "x", Proficiency: 9})
	assert.Error(t, err)

	_, err = s.Skills.Create(ctx, SkillInput{Name: "Go", Category: "x"})
	var c *apperr.ConflictError
	assert.ErrorAs(t, err, &c)
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Users.Create(ctx, NewUser{Email: "weak@x.dev", Password: "short", Name: "W"})
	var v *apperr.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "password", v.Field)

	u, err := s.Users.Create(ctx, NewUser{Email: " Editor@X.dev ", Password: "Sup3r!secret", Name: "Ed"})
	require.NoError(t, err)
	assert.Equal(t, "editor@x.dev", u.Email)
	assert.Equal(t, RoleEditor, u.Role)

	_, err = s.Users.Create(ctx, NewUser{Email: "editor@x.dev", Password: "Sup3r!secret", Name: "Dup"})
	var c *apperr.ConflictError
	require.ErrorAs(t, err, &c)

	got, err := s.Users.Authenticate(ctx, "EDITOR@x.dev", "Sup3r!secret")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)

	_, err = s.Users.Authenticate(ctx, "editor@x.dev", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Users.Authenticate(ctx, "nobody@x.dev", "Sup3r!secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.Users.Deactivate(ctx, u.ID))
	_, err = s.Users.Authenticate(ctx, "editor@x.dev", "Sup3r!secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMedia(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	w, h := 800, 600
	img, err := s.Media.Create(ctx, MediaInput{Filename: "a.jpg", OriginalFilename: "Holiday.jpg", FilePath: "uploads/a.jpg",
		FileURL: "/uploads/a.jpg", FileSize: 100, MimeType: "image/jpeg", Width: &w, Height: &h})
	require.NoError(t, err)
	assert.Equal(t, MediaImage, img.FileType)
	require.NotNil(t, img.Width)
	assert.Equal(t, 800, *img.Width)
	assert.Nil(t, img.Duration)

	doc, err := s.Media.Create(ctx, MediaInput{Filename: "b.pdf", OriginalFilename: "cv.pdf", FilePath: "uploads/b.pdf",
		FileURL: "/uploads/b.pdf", FileSize: 50, MimeType: "application/pdf"})
	require.NoError(t, err)

	images, err := s.Media.List(ctx, MediaFilter{Type: "images"})
	require.NoError(t, err)
	assert.Equal(t, 1, images.Total)
	docs, err := s.Media.List(ctx, MediaFilter{Type: "documents"})
	require.NoError(t, err)
	assert.Equal(t, 1, docs.Total)
	found, err := s.Media.List(ctx, MediaFilter{Search: "holiday"})
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)

	up, err := s.Media.Update(ctx, img.ID, MediaPatch{AltText: ptr("Beach")})
	require.NoError(t, err)
	assert.Equal(t, "Beach", up.AltText)

	renamed, err := s.Media.Rename(ctx, img.ID, "beach.jpg", "uploads/beach.jpg", "/uploads/beach.jpg")
	require.NoError(t, err)
	assert.Equal(t, "beach.jpg", renamed.Filename)
	exists, err := s.Media.FilenameExists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	stats, err := s.Media.StorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, StorageStats{TotalFiles: 2, TotalSize: 150, Images: 1, Documents: 1}, stats)

	deleted, err := s.Media.DeleteMany(ctx, []int64{img.ID, doc.ID, 999})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	_, err = s.Media.Delete(ctx, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactsAndSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.Contacts.Create(ctx, ContactInput{Name: "Ann", Email: "ann@x.dev", Message: "hi", IPHash: "abc"})
	require.NoError(t, err)
	assert.Equal(t, ContactNew, c.Status)

	_, err = s.Contacts.UpdateStatus(ctx, c.ID, "bogus")
	assert.Error(t, err)
	read, err := s.Contacts.UpdateStatus(ctx, c.ID, ContactRead)
	require.NoError(t, err)
	assert.Equal(t, ContactRead, read.Status)

	counts, err := s.Contacts.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{ContactNew: 0, ContactRead: 1, ContactReplied: 0, ContactArchived: 0}, counts)

	_, err = s.Settings.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Settings.Set(ctx, "k", "v1"))
	require.NoError(t, s.Settings.Set(ctx, "k", "v2"))
	v, err := s.Settings.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	_, err = s.Site.Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	cfg, err := s.Site.Update(ctx, SiteConfigPatch{SiteTitle: ptr("Mine")})
	require.NoError(t, err)
	assert.Equal(t, "Mine", cfg.SiteTitle)
}

func TestSeedAndStats(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.db")
	opts := Options{Path: path, Seed: true, AdminEmail: "admin@example.com", AdminPassword: "Adm1n!pass"}

	s, err := Open(ctx, opts)
	require.NoError(t, err)
	require.NoError(t, s.Seed(ctx, opts))
	defer s.Close()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, st.Skills.Total)
	assert.Equal(t, 4, st.Projects.Total)
	assert.Equal(t, 3, st.Posts.Total)
	assert.Equal(t, 3, st.Posts.Published)
	assert.Equal(t, 5, st.Skills.ByCategory["frontend"])
	assert.Positive(t, st.Tags)

	n, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cfg, err := s.Site.Get(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.SiteTitle)

	res, err := s.SearchContent(ctx, "typescript", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "blog", res[0].Type)
	assert.Equal(t, "/blog/advanced-typescript-patterns/", res[0].URL)
}

func TestDBErrPassesSentinels(t *testing.T) {
	assert.ErrorIs(t, dbErr(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, dbErr(context.Canceled), context.Canceled)
	assert.NoError(t, dbErr(nil))
	_, ok := apperr.As(dbErr(errors.New("disk I/O error")))
	assert.True(t, ok)
}
