package client

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/eringen/folio/store"
)

// ErrReadOnly is returned by writes on a collection the API does not let
// clients change.
var ErrReadOnly = errors.New("client: collection is read-only")

// loadPageSize is the page size LoadAll walks the list endpoints with.
const loadPageSize = store.MaxLimit

// Collection is a local copy of one kind of API resource. The zero value
// is not usable; get one from Client.Blogs, Client.Projects or
// Client.Skills.
type Collection[T any, In any, P any] struct {
	mu      sync.RWMutex
	data    []T
	loading bool
	err     error
	loaded  bool

	id     func(T) int64
	load   func(context.Context) ([]T, error)
	create func(context.Context, In) (T, error)
	update func(context.Context, int64, P) (T, error)
	remove func(context.Context, int64) error
	score  func(T, string) int
}

// State is a snapshot of a collection.
type State[T any] struct {
	Data    []T
	Loading bool
	Err     error
}

// State returns a copy of the current data and status.
func (c *Collection[T, In, P]) State() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State[T]{Data: slices.Clone(c.data), Loading: c.loading, Err: c.err}
}

// Data returns a copy of the loaded items.
func (c *Collection[T, In, P]) Data() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data)
}

// Init loads the collection unless it already holds data.
func (c *Collection[T, In, P]) Init(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.LoadAll(ctx)
}

// LoadAll replaces the local data with everything the server lists. On
// failure the previous data is kept and the error recorded.
func (c *Collection[T, In, P]) LoadAll(ctx context.Context) error {
	c.mu.Lock()
	c.loading, c.err = true, nil
	c.mu.Unlock()

	items, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.err = err
		return err
	}
	c.data, c.loaded = items, true
	return nil
}

// Create stores in on the server and appends the result locally.
func (c *Collection[T, In, P]) Create(ctx context.Context, in In) (T, error) {
	if c.create == nil {
		var zero T
		return zero, ErrReadOnly
	}
	v, err := c.create(ctx, in)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err
		return v, err
	}
	c.data = append(c.data, v)
	return v, nil
}

// UpdateByID patches item id on the server and replaces it locally.
func (c *Collection[T, In, P]) UpdateByID(ctx context.Context, id int64, patch P) (T, error) {
	if c.update == nil {
		var zero T
		return zero, ErrReadOnly
	}
	v, err := c.update(ctx, id, patch)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err
		return v, err
	}
	if i := c.index(id); i >= 0 {
		c.data[i] = v
	} else {
		c.data = append(c.data, v)
	}
	return v, nil
}

// DeleteByID deletes item id on the server and drops it locally.
func (c *Collection[T, In, P]) DeleteByID(ctx context.Context, id int64) error {
	if c.remove == nil {
		return ErrReadOnly
	}
	err := c.remove(ctx, id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = err
		return err
	}
	if i := c.index(id); i >= 0 {
		c.data = slices.Delete(c.data, i, i+1)
	}
	return nil
}

// index must be called with mu held.
func (c *Collection[T, In, P]) index(id int64) int {
	return slices.IndexFunc(c.data, func(v T) bool { return c.id(v) == id })
}

// Reset drops the local data and error.
func (c *Collection[T, In, P]) Reset() {
	c.mu.Lock()
	c.data, c.err, c.loading, c.loaded = nil, nil, false, false
	c.mu.Unlock()
}

// Get returns the loaded item with the given id.
func (c *Collection[T, In, P]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.data[i], true
	}
	var zero T
	return zero, false
}

// Find returns the loaded items matching pred, in load order.
func (c *Collection[T, In, P]) Find(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, v := range c.data {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Search ranks the loaded items against q, best match first. An empty q
// returns everything.
func (c *Collection[T, In, P]) Search(q string) []T {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.Data()
	}
	type hit struct {
		v     T
		score int
	}
	c.mu.RLock()
	var hits []hit
	for _, v := range c.data {
		if s := c.score(v, q); s > 0 {
			hits = append(hits, hit{v, s})
		}
	}
	c.mu.RUnlock()
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(b.score, a.score) })
	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = h.v
	}
	return out
}

func has(s, q string) bool { return strings.Contains(strings.ToLower(s), q) }

func anyHas(list []string, q string) bool {
	return slices.ContainsFunc(list, func(s string) bool { return has(s, q) })
}

// loadAll walks a paged list endpoint to the end.
func loadAll[T any](ctx context.Context, fetch func(context.Context, ListQuery) (List[T], error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		l, err := fetch(ctx, ListQuery{Limit: loadPageSize, Offset: (page - 1) * loadPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, l.Data...)
		if !l.Meta.HasNext || len(l.Data) == 0 {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// BlogCollection holds blog posts. Without a token only published posts
// are loaded.
type BlogCollection struct {
	*Collection[store.BlogPost, BlogInput, BlogInput]
}

// Blogs returns a collection over /api/blogs.
func (c *Client) Blogs() *BlogCollection {
	return &BlogCollection{&Collection[store.BlogPost, BlogInput, BlogInput]{
		id: func(p store.BlogPost) int64 { return p.ID },
		load: func(ctx context.Context) ([]store.BlogPost, error) {
			return loadAll(ctx, c.ListBlogs)
		},
		create: c.CreateBlog,
		update: c.UpdateBlog,
		remove: c.DeleteBlog,
		score:  scoreBlog,
	}}
}

func scoreBlog(p store.BlogPost, q string) int {
	score := 0
	switch title := strings.ToLower(p.Title); {
	case title == q:
		score += 100
	case strings.Contains(title, q):
		score += 50
	}
	if anyHas(p.TagNames(), q) {
		score += 30
	}
	if has(p.Excerpt, q) {
		score += 20
	}
	if has(p.Content, q) {
		score += 10
	}
	return score
}

// BySlug returns the loaded post with slug.
func (b *BlogCollection) BySlug(slug string) (store.BlogPost, bool) {
	found := b.Find(func(p store.BlogPost) bool { return p.Slug == slug })
	if len(found) == 0 {
		return store.BlogPost{}, false
	}
	return found[0], true
}

// ByTag returns the loaded posts carrying a tag with the given name or
// slug, ignoring case.
func (b *BlogCollection) ByTag(tag string) []store.BlogPost {
	return b.Find(func(p store.BlogPost) bool {
		return slices.ContainsFunc(p.Tags, func(t store.Tag) bool {
			return strings.EqualFold(t.Name, tag) || strings.EqualFold(t.Slug, tag)
		})
	})
}

// Featured returns the loaded featured posts.
func (b *BlogCollection) Featured() []store.BlogPost {
	return b.Find(func(p store.BlogPost) bool { return p.Featured })
}

// Related returns up to n loaded posts sharing tags with post, most
// shared tags first and newer posts first among equals.
func (b *BlogCollection) Related(post store.BlogPost, n int) []store.BlogPost {
	tags := make(map[string]bool, len(post.Tags))
	for _, t := range post.Tags {
		tags[strings.ToLower(t.Name)] = true
	}
	type ranked struct {
		p      store.BlogPost
		shared int
	}
	var rs []ranked
	for _, p := range b.Data() {
		if p.ID == post.ID {
			continue
		}
		shared := 0
		for _, t := range p.Tags {
			if tags[strings.ToLower(t.Name)] {
				shared++
			}
		}
		if shared > 0 {
			rs = append(rs, ranked{p, shared})
		}
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(b.shared, a.shared); c != 0 {
			return c
		}
		return cmp.Compare(publishedUnix(b.p), publishedUnix(a.p))
	})
	out := make([]store.BlogPost, 0, min(n, len(rs)))
	for _, r := range rs {
		if len(out) == n {
			break
		}
		out = append(out, r.p)
	}
	return out
}

func publishedUnix(p store.BlogPost) int64 {
	if p.PublishedAt == nil {
		return 0
	}
	return p.PublishedAt.Unix()
}

// ProjectCollection holds portfolio projects.
type ProjectCollection struct {
	*Collection[store.Project, ProjectInput, ProjectInput]
}

// Projects returns a collection over /api/projects.
func (c *Client) Projects() *ProjectCollection {
	return &ProjectCollection{&Collection[store.Project, ProjectInput, ProjectInput]{
		id: func(p store.Project) int64 { return p.ID },
		load: func(ctx context.Context) ([]store.Project, error) {
			return loadAll(ctx, c.ListProjects)
		},
		create: c.CreateProject,
		update: c.UpdateProject,
		remove: c.DeleteProject,
		score:  scoreProject,
	}}
}

func scoreProject(p store.Project, q string) int {
	score := 0
	if has(p.Title, q) {
		score += 50
	}
	if anyHas(p.Technologies, q) {
		score += 30
	}
	if has(p.Description, q) {
		score += 20
	}
	if has(p.LongDescription, q) {
		score += 10
	}
	return score
}

// ByStatus returns the loaded projects with status. Status aliases such
// as "in-progress" are accepted.
func (p *ProjectCollection) ByStatus(status string) []store.Project {
	status, _ = store.NormalizeProjectStatus(status)
	return p.Find(func(pr store.Project) bool { return pr.Status == status })
}

// ByTechnology returns the loaded projects using tech, ignoring case.
func (p *ProjectCollection) ByTechnology(tech string) []store.Project {
	return p.Find(func(pr store.Project) bool {
		return slices.ContainsFunc(pr.Technologies, func(t string) bool { return strings.EqualFold(t, tech) })
	})
}

// Featured returns the loaded featured projects.
func (p *ProjectCollection) Featured() []store.Project {
	return p.Find(func(pr store.Project) bool { return pr.Featured })
}

// SkillCollection holds skills. Skills are managed through seeding, so
// the collection is read-only.
type SkillCollection struct {
	*Collection[store.Skill, struct{}, struct{}]
}

// Skills returns a collection over /api/skills.
func (c *Client) Skills() *SkillCollection {
	return &SkillCollection{&Collection[store.Skill, struct{}, struct{}]{
		id: func(s store.Skill) int64 { return s.ID },
		load: func(ctx context.Context) ([]store.Skill, error) {
			return c.ListSkills(ctx, "", 0)
		},
		score: func(s store.Skill, q string) int {
			score := 0
			if has(s.Name, q) {
				score += 50
			}
			if has(s.Category, q) {
				score += 20
			}
			if has(s.Description, q) {
				score += 10
			}
			return score
		},
	}}
}

// ByCategory returns the loaded skills in category, ignoring case.
func (s *SkillCollection) ByCategory(category string) []store.Skill {
	return s.Find(func(sk store.Skill) bool { return strings.EqualFold(sk.Category, category) })
}

// ByProficiency returns the loaded skills at exactly level.
func (s *SkillCollection) ByProficiency(level int) []store.Skill {
	return s.Find(func(sk store.Skill) bool { return sk.Proficiency == level })
}

// Categories returns the distinct categories of the loaded skills in
// first-seen order.
func (s *SkillCollection) Categories() []string {
	var out []string
	for _, sk := range s.Data() {
		if !slices.Contains(out, sk.Category) {
			out = append(out, sk.Category)
		}
	}
	return out
}
