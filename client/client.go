// Package client is a Go client for the folio REST API, plus in-memory
// collections that mirror the server's blogs, projects and skills.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/eringen/folio/store"
)

const defaultTimeout = 30 * time.Second

// Client calls a folio server. Writes need a token from Login.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu      sync.RWMutex
	token   string
	expires time.Time
	user    User
	now     func() time.Time
}

// New returns a Client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
	}
}

// Error is a failed API call.
type Error struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("folio api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("folio api: %d: %s", e.Status, e.Message)
}

// Meta is the paging of a list response.
type Meta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// List is one page of results.
type List[T any] struct {
	Data []T
	Meta Meta
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *Meta           `json:"meta"`
	Error   *Error          `json:"error"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// send performs req and returns the raw body of a 2xx response, or an
// *Error built from the error envelope.
func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		env.Error.Status = resp.StatusCode
		return nil, env.Error
	}
	return nil, &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}

// do sends a JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) (*Meta, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	raw, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return decode(raw, out)
}

func decode(raw []byte, out any) (*Meta, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return env.Meta, nil
}

func list[T any](ctx context.Context, c *Client, path string, q url.Values) (List[T], error) {
	var l List[T]
	meta, err := c.do(ctx, http.MethodGet, path, q, nil, &l.Data)
	if err != nil {
		return l, err
	}
	if meta != nil {
		l.Meta = *meta
	}
	if l.Data == nil {
		l.Data = []T{}
	}
	return l, nil
}

func get[T any](ctx context.Context, c *Client, method, path string, in any) (T, error) {
	var v T
	_, err := c.do(ctx, method, path, nil, in, &v)
	return v, err
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// ListQuery pages and filters list calls. Zero fields are omitted.
type ListQuery struct {
	Status   string
	Search   string
	Tag      string
	Category string
	Featured *bool
	Limit    int
	Offset   int
	Page     int
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("status", q.Status)
	set("search", q.Search)
	set("tag", q.Tag)
	set("category", q.Category)
	if q.Featured != nil {
		v.Set("featured", strconv.FormatBool(*q.Featured))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// Blogs

// BlogInput is the body of blog create and update calls. Nil fields are
// not sent; on update they are left unchanged.
type BlogInput struct {
	Title         *string  `json:"title,omitempty"`
	Slug          *string  `json:"slug,omitempty"`
	Content       *string  `json:"content,omitempty"`
	Excerpt       *string  `json:"excerpt,omitempty"`
	FeaturedImage *string  `json:"featured_image,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Status        *string  `json:"status,omitempty"`
	Featured      *bool    `json:"featured,omitempty"`
	PublishedAt   *string  `json:"published_at,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

func (c *Client) ListBlogs(ctx context.Context, q ListQuery) (List[store.BlogPost], error) {
	return list[store.BlogPost](ctx, c, "/api/blogs", q.values())
}

func (c *Client) GetBlog(ctx context.Context, id int64) (store.BlogPost, error) {
	return get[store.BlogPost](ctx, c, http.MethodGet, idPath("/api/blogs", id), nil)
}

func (c *Client) GetBlogBySlug(ctx context.Context, slug string) (store.BlogPost, error) {
	return get[store.BlogPost](ctx, c, http.MethodGet, "/api/blogs/slug/"+url.PathEscape(slug), nil)
}

// RelatedBlogs asks the server for posts sharing tags with slug.
func (c *Client) RelatedBlogs(ctx context.Context, slug string, limit int) ([]store.BlogPost, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	l, err := list[store.BlogPost](ctx, c, "/api/blogs/slug/"+url.PathEscape(slug)+"/related", q)
	return l.Data, err
}

func (c *Client) CreateBlog(ctx context.Context, in BlogInput) (store.BlogPost, error) {
	return get[store.BlogPost](ctx, c, http.MethodPost, "/api/blogs", in)
}

func (c *Client) UpdateBlog(ctx context.Context, id int64, in BlogInput) (store.BlogPost, error) {
	return get[store.BlogPost](ctx, c, http.MethodPut, idPath("/api/blogs", id), in)
}

func (c *Client) DeleteBlog(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, idPath("/api/blogs", id), nil, nil, nil)
	return err
}

func (c *Client) BlogStats(ctx context.Context) (store.PostStats, error) {
	return get[store.PostStats](ctx, c, http.MethodGet, "/api/blogs/stats", nil)
}

// Projects

// ProjectInput is the body of project create and update calls.
type ProjectInput struct {
	Title              *string   `json:"title,omitempty"`
	Slug               *string   `json:"slug,omitempty"`
	Description        *string   `json:"description,omitempty"`
	LongDescription    *string   `json:"long_description,omitempty"`
	ImageURL           *string   `json:"image_url,omitempty"`
	Technologies       *[]string `json:"technologies,omitempty"`
	GithubURL          *string   `json:"github_url,omitempty"`
	DemoURL            *string   `json:"demo_url,omitempty"`
	Status             *string   `json:"status,omitempty"`
	Featured           *bool     `json:"featured,omitempty"`
	StartDate          *string   `json:"start_date,omitempty"`
	CompletionDate     *string   `json:"completion_date,omitempty"`
	Challenges         *[]string `json:"challenges,omitempty"`
	Solutions          *[]string `json:"solutions,omitempty"`
	SkillsDemonstrated *[]string `json:"skills_demonstrated,omitempty"`
	MetaDescription    *string   `json:"meta_description,omitempty"`
	SortOrder          *int      `json:"sort_order,omitempty"`
	Skills             []string  `json:"skills,omitempty"`
}

func (c *Client) ListProjects(ctx context.Context, q ListQuery) (List[store.Project], error) {
	return list[store.Project](ctx, c, "/api/projects", q.values())
}

func (c *Client) GetProject(ctx context.Context, id int64) (store.Project, error) {
	return get[store.Project](ctx, c, http.MethodGet, idPath("/api/projects", id), nil)
}

func (c *Client) GetProjectBySlug(ctx context.Context, slug string) (store.Project, error) {
	return get[store.Project](ctx, c, http.MethodGet, "/api/projects/slug/"+url.PathEscape(slug), nil)
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (store.Project, error) {
	return get[store.Project](ctx, c, http.MethodPost, "/api/projects", in)
}

func (c *Client) UpdateProject(ctx context.Context, id int64, in ProjectInput) (store.Project, error) {
	return get[store.Project](ctx, c, http.MethodPut, idPath("/api/projects", id), in)
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, idPath("/api/projects", id), nil, nil, nil)
	return err
}

func (c *Client) ProjectStats(ctx context.Context) (store.ProjectStats, error) {
	return get[store.ProjectStats](ctx, c, http.MethodGet, "/api/projects/stats", nil)
}

// Media

// UploadFile is one file for UploadMedia.
type UploadFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// UploadResult is the outcome of one uploaded file: File on success, Error
// and Filename otherwise.
type UploadResult struct {
	File     *store.MediaFile
	Error    string
	Filename string
}

// UnmarshalJSON tells a stored file from a per-file failure.
func (r *UploadResult) UnmarshalJSON(b []byte) error {
	var probe struct {
		ID       int64  `json:"id"`
		Error    string `json:"error"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.Error != "" {
		r.Error, r.Filename = probe.Error, probe.Filename
		return nil
	}
	var m store.MediaFile
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	r.File, r.Filename = &m, m.Filename
	return nil
}

// MediaPatch is the body of UpdateMedia. A Filename renames the file.
type MediaPatch struct {
	Filename         *string `json:"filename,omitempty"`
	AltText          *string `json:"alt_text,omitempty"`
	OriginalFilename *string `json:"original_filename,omitempty"`
}

func (c *Client) ListMedia(ctx context.Context, search, typ string, limit, offset int) (List[store.MediaFile], error) {
	q := ListQuery{Search: search, Limit: limit, Offset: offset}.values()
	if typ != "" {
		q.Set("type", typ)
	}
	return list[store.MediaFile](ctx, c, "/api/media", q)
}

func (c *Client) GetMedia(ctx context.Context, id int64) (store.MediaFile, error) {
	return get[store.MediaFile](ctx, c, http.MethodGet, idPath("/api/media", id), nil)
}

// UploadMedia sends files as the multipart field "files".
func (c *Client) UploadMedia(ctx context.Context, files ...UploadFile) ([]UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(f.Name))}
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h["Content-Type"] = []string{ct}
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return nil, fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/media", nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	raw, err := c.send(req)
	if err != nil {
		return nil, err
	}
	var results []UploadResult
	_, err = decode(raw, &results)
	return results, err
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func (c *Client) UpdateMedia(ctx context.Context, id int64, p MediaPatch) (store.MediaFile, error) {
	return get[store.MediaFile](ctx, c, http.MethodPatch, idPath("/api/media", id), p)
}

func (c *Client) DeleteMedia(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, idPath("/api/media", id), nil, nil, nil)
	return err
}

// DeleteMediaBatch deletes ids and returns how many existed.
func (c *Client) DeleteMediaBatch(ctx context.Context, ids []int64) (int, error) {
	var out struct {
		DeletedCount int `json:"deletedCount"`
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/media", nil, map[string][]int64{"ids": ids}, &out)
	return out.DeletedCount, err
}

func (c *Client) MediaStats(ctx context.Context) (store.StorageStats, error) {
	return get[store.StorageStats](ctx, c, http.MethodGet, "/api/media/stats", nil)
}

// Skills, tags and the rest

func (c *Client) ListSkills(ctx context.Context, category string, minProficiency int) ([]store.Skill, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if minProficiency > 0 {
		q.Set("min_proficiency", strconv.Itoa(minProficiency))
	}
	l, err := list[store.Skill](ctx, c, "/api/skills", q)
	return l.Data, err
}

func (c *Client) SkillCategories(ctx context.Context) ([]string, error) {
	return get[[]string](ctx, c, http.MethodGet, "/api/skills/categories", nil)
}

func (c *Client) Tags(ctx context.Context) ([]store.TagCount, error) {
	return get[[]store.TagCount](ctx, c, http.MethodGet, "/api/tags", nil)
}

func (c *Client) Search(ctx context.Context, q string, limit int) ([]store.SearchResult, error) {
	v := url.Values{"q": {q}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	l, err := list[store.SearchResult](ctx, c, "/api/search", v)
	return l.Data, err
}

func (c *Client) Stats(ctx context.Context) (store.DatabaseStats, error) {
	return get[store.DatabaseStats](ctx, c, http.MethodGet, "/api/stats", nil)
}

// ContactInput is a contact form message.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// SendContact submits a contact message and returns its id.
func (c *Client) SendContact(ctx context.Context, in ContactInput) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/contact", nil, in, &out)
	return out.ID, err
}

func (c *Client) Site(ctx context.Context) (store.SiteConfig, error) {
	return get[store.SiteConfig](ctx, c, http.MethodGet, "/api/site", nil)
}

func (c *Client) UpdateSite(ctx context.Context, p store.SiteConfigPatch) (store.SiteConfig, error) {
	return get[store.SiteConfig](ctx, c, http.MethodPut, "/api/site", p)
}
