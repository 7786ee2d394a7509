package folio

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/eringen/folio/store"
)

var reSlug = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain dates. An empty string
// is a nil time.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

func dateRule(value any) error {
	s, _ := value.(*string)
	if s == nil {
		return nil
	}
	_, err := parseDate(*s)
	return err
}

func mustDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, _ := parseDate(*s)
	return t
}

func projectStatusRule(value any) error {
	s, _ := value.(*string)
	if s == nil || *s == "" {
		return nil
	}
	if _, ok := store.NormalizeProjectStatus(*s); !ok {
		return errors.New("must be one of " + strings.Join(store.ProjectStatuses, ", "))
	}
	return nil
}

func stringsIn(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// blogRequest is the body of POST and PUT /api/blogs and the admin post
// form. Nil fields are absent; a nil Tags leaves the tags alone.
type blogRequest struct {
	Title         *string  `json:"title"`
	Slug          *string  `json:"slug"`
	Content       *string  `json:"content"`
	Excerpt       *string  `json:"excerpt"`
	FeaturedImage *string  `json:"featured_image"`
	Category      *string  `json:"category"`
	Status        *string  `json:"status"`
	Featured      *bool    `json:"featured"`
	PublishedAt   *string  `json:"published_at"`
	Tags          []string `json:"tags"`
}

func (r blogRequest) Validate(create bool) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.When(create, validation.Required), validation.Length(1, 200)),
		validation.Field(&r.Slug, validation.When(r.Slug != nil && *r.Slug != "", validation.Match(reSlug).Error("must contain only lowercase letters, digits and hyphens"))),
		validation.Field(&r.Content, validation.When(create, validation.Required)),
		validation.Field(&r.Excerpt, validation.Length(0, 500)),
		validation.Field(&r.Status, validation.When(!create, validation.NilOrNotEmpty), validation.In(stringsIn(store.PostStatuses)...)),
		validation.Field(&r.PublishedAt, validation.By(dateRule)),
		validation.Field(&r.Tags, validation.Length(0, 20)),
	)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (r blogRequest) input() store.BlogPostInput {
	status := deref(r.Status)
	if status == "" {
		status = store.StatusDraft
	}
	return store.BlogPostInput{
		Title:         strings.TrimSpace(deref(r.Title)),
		Slug:          deref(r.Slug),
		Content:       deref(r.Content),
		Excerpt:       deref(r.Excerpt),
		FeaturedImage: deref(r.FeaturedImage),
		Category:      deref(r.Category),
		Status:        status,
		Featured:      deref(r.Featured),
		PublishedAt:   mustDate(r.PublishedAt),
		Tags:          r.Tags,
	}
}

func (r blogRequest) patch() store.BlogPostPatch {
	p := store.BlogPostPatch{
		Title:         r.Title,
		Slug:          r.Slug,
		Content:       r.Content,
		Excerpt:       r.Excerpt,
		FeaturedImage: r.FeaturedImage,
		Category:      r.Category,
		Status:        r.Status,
		Featured:      r.Featured,
		PublishedAt:   mustDate(r.PublishedAt),
		Tags:          r.Tags,
	}
	if p.Slug != nil && *p.Slug == "" {
		p.Slug = nil
	}
	return p
}

// projectRequest is the body of POST and PUT /api/projects and the admin
// project form.
type projectRequest struct {
	Title              *string   `json:"title"`
	Slug               *string   `json:"slug"`
	Description        *string   `json:"description"`
	LongDescription    *string   `json:"long_description"`
	ImageURL           *string   `json:"image_url"`
	Technologies       *[]string `json:"technologies"`
	GithubURL          *string   `json:"github_url"`
	DemoURL            *string   `json:"demo_url"`
	Status             *string   `json:"status"`
	Featured           *bool     `json:"featured"`
	StartDate          *string   `json:"start_date"`
	CompletionDate     *string   `json:"completion_date"`
	Challenges         *[]string `json:"challenges"`
	Solutions          *[]string `json:"solutions"`
	SkillsDemonstrated *[]string `json:"skills_demonstrated"`
	MetaDescription    *string   `json:"meta_description"`
	SortOrder          *int      `json:"sort_order"`
	Skills             []string  `json:"skills"`
	SkillIDs           []int64   `json:"skill_ids"`
}

func (r projectRequest) Validate(create bool) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.When(create, validation.Required), validation.Length(1, 200)),
		validation.Field(&r.Slug, validation.When(r.Slug != nil && *r.Slug != "", validation.Match(reSlug).Error("must contain only lowercase letters, digits and hyphens"))),
		validation.Field(&r.Description, validation.When(create, validation.Required), validation.Length(0, 1000)),
		validation.Field(&r.GithubURL, is.URL),
		validation.Field(&r.DemoURL, is.URL),
		validation.Field(&r.Status, validation.When(!create, validation.NilOrNotEmpty), validation.By(projectStatusRule)),
		validation.Field(&r.StartDate, validation.By(dateRule)),
		validation.Field(&r.CompletionDate, validation.By(dateRule)),
		validation.Field(&r.MetaDescription, validation.Length(0, 300)),
	)
}

func (r projectRequest) input() store.ProjectInput {
	return store.ProjectInput{
		Title:              strings.TrimSpace(deref(r.Title)),
		Slug:               deref(r.Slug),
		Description:        deref(r.Description),
		LongDescription:    deref(r.LongDescription),
		ImageURL:           deref(r.ImageURL),
		Technologies:       deref(r.Technologies),
		GithubURL:          deref(r.GithubURL),
		DemoURL:            deref(r.DemoURL),
		Status:             deref(r.Status),
		Featured:           deref(r.Featured),
		StartDate:          mustDate(r.StartDate),
		CompletionDate:     mustDate(r.CompletionDate),
		Challenges:         deref(r.Challenges),
		Solutions:          deref(r.Solutions),
		SkillsDemonstrated: deref(r.SkillsDemonstrated),
		MetaDescription:    deref(r.MetaDescription),
		SortOrder:          deref(r.SortOrder),
		Skills:             r.Skills,
		SkillIDs:           r.SkillIDs,
	}
}

func (r projectRequest) patch() store.ProjectPatch {
	p := store.ProjectPatch{
		Title:              r.Title,
		Slug:               r.Slug,
		Description:        r.Description,
		LongDescription:    r.LongDescription,
		ImageURL:           r.ImageURL,
		Technologies:       r.Technologies,
		GithubURL:          r.GithubURL,
		DemoURL:            r.DemoURL,
		Status:             r.Status,
		Featured:           r.Featured,
		StartDate:          mustDate(r.StartDate),
		CompletionDate:     mustDate(r.CompletionDate),
		Challenges:         r.Challenges,
		Solutions:          r.Solutions,
		SkillsDemonstrated: r.SkillsDemonstrated,
		MetaDescription:    r.MetaDescription,
		SortOrder:          r.SortOrder,
		Skills:             r.Skills,
		SkillIDs:           r.SkillIDs,
	}
	if p.Slug != nil && *p.Slug == "" {
		p.Slug = nil
	}
	return p
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("email is required")),
		validation.Field(&r.Password, validation.Required.Error("password is required")),
	)
}

// contactRequest is a contact form submission.
type contactRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

func (r contactRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat, validation.Length(3, 254)),
		validation.Field(&r.Subject, validation.Length(0, 200)),
		validation.Field(&r.Message, validation.Required, validation.Length(10, 5000)),
	)
}

// mediaPatchRequest is the body of PATCH /api/media/:id.
type mediaPatchRequest struct {
	Filename         *string `json:"filename"`
	AltText          *string `json:"alt_text"`
	OriginalFilename *string `json:"original_filename"`
}

func (r mediaPatchRequest) empty() bool {
	return r.Filename == nil && r.AltText == nil && r.OriginalFilename == nil
}

func (r mediaPatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.AltText, validation.Length(0, 500)),
		validation.Field(&r.OriginalFilename, validation.Length(0, 255)),
	)
}

type mediaDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// siteRequest is the body of PUT /api/site.
type siteRequest struct {
	store.SiteConfigPatch
}

func (r siteRequest) Validate() error {
	p := r.SiteConfigPatch
	return validation.ValidateStruct(&p,
		validation.Field(&p.SiteTitle, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&p.SiteURL, is.URL),
		validation.Field(&p.AuthorEmail, is.EmailFormat),
		validation.Field(&p.SiteDescription, validation.Length(0, 500)),
	)
}
