// Package views holds the page data handed to templ components. Handlers
// build these structs; templates only read them.
package views

import (
	"github.com/eringen/folio/imageset"
	"github.com/eringen/folio/seo"
	"github.com/eringen/folio/store"
)

// Site holds site-wide settings from the environment.
type Site struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Twitter     string `json:"twitter,omitempty"`
}

// Page is embedded in every page struct.
type Page struct {
	Site Site `json:"site"`
	// Profile is the editable site_config row.
	Profile store.SiteConfig `json:"profile"`
	Meta    seo.Meta         `json:"meta"`
	JSONLD  string           `json:"json_ld,omitempty"`
	Path    string           `json:"path"`
	CSRF    string           `json:"-"`
}

// Pagination describes a paged list for templates.
type Pagination struct {
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	Total      int  `json:"total"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// PaginationOf copies the paging fields of p.
func PaginationOf[T any](p store.Page[T]) Pagination {
	return Pagination{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// HomePage is the landing page.
type HomePage struct {
	Page
	FeaturedProjects []store.Project    `json:"featured_projects"`
	RecentPosts      []store.BlogPost   `json:"recent_posts"`
	Skills           []store.SkillGroup `json:"skills"`
}

// BlogListPage lists published posts.
type BlogListPage struct {
	Page
	Posts      []store.BlogPost `json:"posts"`
	Tags       []store.TagCount `json:"tags"`
	ActiveTag  string           `json:"active_tag,omitempty"`
	Query      string           `json:"query,omitempty"`
	Pagination Pagination       `json:"pagination"`
}

// PostPage is a single post.
type PostPage struct {
	Page
	Post        store.BlogPost          `json:"post"`
	HTML        string                  `json:"html"`
	Related     []store.BlogPost        `json:"related"`
	ReadingTime int                     `json:"reading_time"`
	Headings    []seo.Heading           `json:"headings"`
	Share       seo.ShareLinks          `json:"share"`
	Image       *imageset.PictureConfig `json:"image,omitempty"`
}

// ProjectsPage lists projects.
type ProjectsPage struct {
	Page
	Projects     []store.Project `json:"projects"`
	Status       string          `json:"status,omitempty"`
	Technologies []string        `json:"technologies"`
}

// ProjectPage is a single project.
type ProjectPage struct {
	Page
	Project store.Project           `json:"project"`
	HTML    string                  `json:"html"`
	Image   *imageset.PictureConfig `json:"image,omitempty"`
}

// SearchPage shows cross-content search results.
type SearchPage struct {
	Page
	Query   string               `json:"query"`
	Results []store.SearchResult `json:"results"`
}

// ContactPage is shown after a contact form submission.
type ContactPage struct {
	Page
	Sent   bool              `json:"sent"`
	Errors map[string]string `json:"errors,omitempty"`
}

// AdminLoginPage is the CMS sign-in form.
type AdminLoginPage struct {
	Page
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"`
}

// AdminDashboardPage is the CMS overview.
type AdminDashboardPage struct {
	Page
	User        store.User                `json:"user"`
	Stats       store.DatabaseStats       `json:"stats"`
	RecentPosts []store.BlogPost          `json:"recent_posts"`
	NewContacts []store.ContactSubmission `json:"new_contacts"`
	Message     string                    `json:"message,omitempty"`
}

// AdminPostsPage lists posts of every status.
type AdminPostsPage struct {
	Page
	Posts      []store.BlogPost `json:"posts"`
	Status     string           `json:"status,omitempty"`
	Pagination Pagination       `json:"pagination"`
	Message    string           `json:"message,omitempty"`
}

// AdminPostFormPage edits or creates a post. Post.ID is zero for a new post.
type AdminPostFormPage struct {
	Page
	Post       store.BlogPost    `json:"post"`
	Categories []string          `json:"categories"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// AdminProjectsPage lists projects.
type AdminProjectsPage struct {
	Page
	Projects []store.Project `json:"projects"`
	Message  string          `json:"message,omitempty"`
}

// AdminProjectFormPage edits or creates a project.
type AdminProjectFormPage struct {
	Page
	Project store.Project     `json:"project"`
	Skills  []store.Skill     `json:"skills"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// AdminMediaPage is the media library.
type AdminMediaPage struct {
	Page
	Files      []store.MediaFile  `json:"files"`
	Stats      store.StorageStats `json:"stats"`
	Search     string             `json:"search,omitempty"`
	Type       string             `json:"type,omitempty"`
	Pagination Pagination         `json:"pagination"`
	Message    string             `json:"message,omitempty"`
}

// AdminContactsPage lists contact submissions.
type AdminContactsPage struct {
	Page
	Contacts   []store.ContactSubmission `json:"contacts"`
	Status     string                    `json:"status,omitempty"`
	Counts     map[string]int            `json:"counts"`
	Pagination Pagination                `json:"pagination"`
}

// ErrorPage is rendered for 404 and 5xx responses.
type ErrorPage struct {
	Page
	Status  int    `json:"status"`
	Message string `json:"message"`
}
