package store

import (
	"strings"
	"time"
)

// Blog post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Project statuses.
const (
	ProjectPlanning   = "planning"
	ProjectInProgress = "in-progress"
	ProjectCompleted  = "completed"
	ProjectOnHold     = "on-hold"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Media file types.
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaDocument = "document"
)

// Contact submission statuses.
const (
	ContactNew      = "new"
	ContactRead     = "read"
	ContactReplied  = "replied"
	ContactArchived = "archived"
)

// PostStatuses lists the valid blog post statuses.
var PostStatuses = []string{StatusDraft, StatusPublished, StatusArchived}

// ProjectStatuses lists the valid project statuses.
var ProjectStatuses = []string{ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectOnHold}

// ContactStatuses lists the valid contact submission statuses.
var ContactStatuses = []string{ContactNew, ContactRead, ContactReplied, ContactArchived}

var projectStatusAliases = map[string]string{
	"development": ProjectInProgress,
	"maintenance": ProjectOnHold,
}

// NormalizeProjectStatus maps legacy aliases onto the stored status set and
// reports whether the result is valid.
func NormalizeProjectStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := projectStatusAliases[s]; ok {
		s = alias
	}
	for _, v := range ProjectStatuses {
		if s == v {
			return s, true
		}
	}
	return s, false
}

// BlogPost is a markdown article.
type BlogPost struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt"`
	FeaturedImage string     `json:"featured_image"`
	Category      string     `json:"category"`
	Status        string     `json:"status"`
	Featured      bool       `json:"featured"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	ViewCount     int64      `json:"view_count"`
	Tags          []Tag      `json:"tags"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsPublished reports whether the post is visible at t.
func (p BlogPost) IsPublished(t time.Time) bool {
	return p.Status == StatusPublished && p.PublishedAt != nil && !p.PublishedAt.After(t)
}

// TagNames returns the names of the post's tags.
func (p BlogPost) TagNames() []string {
	names := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		names[i] = t.Name
	}
	return names
}

// Link is the public path of the post.
func (p BlogPost) Link() string { return "/blog/" + p.Slug + "/" }

// LastModified returns UpdatedAt, or CreatedAt when UpdatedAt is unset.
func (p BlogPost) LastModified() time.Time {
	if p.UpdatedAt.IsZero() {
		return p.CreatedAt
	}
	return p.UpdatedAt
}

// Project is a portfolio entry.
type Project struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"title"`
	Slug               string     `json:"slug"`
	Description        string     `json:"description"`
	LongDescription    string     `json:"long_description"`
	ImageURL           string     `json:"image_url"`
	Technologies       StringList `json:"technologies"`
	GithubURL          string     `json:"github_url"`
	DemoURL            string     `json:"demo_url"`
	Status             string     `json:"status"`
	Featured           bool       `json:"featured"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	CompletionDate     *time.Time `json:"completion_date,omitempty"`
	Challenges         StringList `json:"challenges"`
	Solutions          StringList `json:"solutions"`
	SkillsDemonstrated StringList `json:"skills_demonstrated"`
	MetaDescription    string     `json:"meta_description"`
	SortOrder          int        `json:"sort_order"`
	Skills             []Skill    `json:"skills"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Link is the public path of the project.
func (p Project) Link() string { return "/projects/" + p.Slug + "/" }

// LastModified returns UpdatedAt, or CreatedAt when UpdatedAt is unset.
func (p Project) LastModified() time.Time {
	if p.UpdatedAt.IsZero() {
		return p.CreatedAt
	}
	return p.UpdatedAt
}

// SkillNames returns the names of the project's linked skills.
func (p Project) SkillNames() []string {
	names := make([]string, len(p.Skills))
	for i, s := range p.Skills {
		names[i] = s.Name
	}
	return names
}

// Skill is a proficiency entry on a 1-5 scale.
type Skill struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Proficiency int       `json:"proficiency"`
	Description string    `json:"description"`
	IconURL     string    `json:"icon_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag labels blog posts.
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TagCount is a tag with the number of published posts carrying it.
type TagCount struct {
	Tag
	PostCount int `json:"post_count"`
}

// User is a CMS account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MediaFile is an uploaded file.
type MediaFile struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	FileURL          string    `json:"file_url"`
	FileType         string    `json:"file_type"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	Width            *int      `json:"width,omitempty"`
	Height           *int      `json:"height,omitempty"`
	Duration         *int      `json:"duration,omitempty"`
	AltText          string    `json:"alt_text"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FileTypeForMime classifies a MIME type into a media file type.
func FileTypeForMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaImage
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo
	default:
		return MediaDocument
	}
}

// SiteConfig is the single row of site-wide settings.
type SiteConfig struct {
	SiteTitle       string    `json:"site_title"`
	SiteDescription string    `json:"site_description"`
	SiteURL         string    `json:"site_url"`
	AuthorName      string    `json:"author_name"`
	AuthorEmail     string    `json:"author_email"`
	AuthorBio       string    `json:"author_bio"`
	SocialGithub    string    `json:"social_github"`
	SocialLinkedIn  string    `json:"social_linkedin"`
	SocialTwitter   string    `json:"social_twitter"`
	AnalyticsID     string    `json:"analytics_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ContactSubmission is a message sent through the contact form.
type ContactSubmission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}
