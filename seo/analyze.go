package seo

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Report is the outcome of Validate.
type Report struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// Validate checks cfg against the title, description and keyword limits.
func Validate(cfg Config) Report {
	r := Report{Warnings: []string{}, Errors: []string{}}
	if n := runeLen(cfg.Title); n == 0 {
		r.Errors = append(r.Errors, "Title is required")
	} else if n < TitleMin {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Title is too short (%d chars, minimum %d)", n, TitleMin))
	} else if n > TitleMax {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Title is too long (%d chars, maximum %d)", n, TitleMax))
	}
	if n := runeLen(cfg.Description); n == 0 {
		r.Errors = append(r.Errors, "Description is required")
	} else if n < DescriptionMin {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Description is too short (%d chars, minimum %d)", n, DescriptionMin))
	} else if n > DescriptionMax {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Description is too long (%d chars, maximum %d)", n, DescriptionMax))
	}
	if n := len(cfg.Keywords); n > KeywordsMax {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Too many keywords (%d, maximum %d)", n, KeywordsMax))
	}
	if cfg.Image != "" && cfg.ImageAlt == "" {
		r.Warnings = append(r.Warnings, "Image provided without alt text")
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// Heading is one Markdown heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Analysis summarizes a piece of Markdown content.
type Analysis struct {
	WordCount       int       `json:"word_count"`
	ReadingTime     int       `json:"reading_time"`
	Headings        []Heading `json:"headings"`
	InternalLinks   int       `json:"internal_links"`
	ExternalLinks   int       `json:"external_links"`
	Recommendations []string  `json:"recommendations"`
}

var (
	reHeadingLine = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	reMDLink      = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

// ReadingTime returns the minutes needed to read words, rounded up.
func ReadingTime(words int) int {
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

// Analyze counts words, headings and links in md and suggests improvements.
func Analyze(md string) Analysis {
	a := Analysis{
		WordCount:       len(strings.Fields(md)),
		Headings:        []Heading{},
		Recommendations: []string{},
	}
	a.ReadingTime = ReadingTime(a.WordCount)

	for _, m := range reHeadingLine.FindAllStringSubmatch(md, -1) {
		a.Headings = append(a.Headings, Heading{Level: len(m[1]), Text: strings.TrimSpace(m[2])})
	}
	for _, m := range reMDLink.FindAllStringSubmatch(md, -1) {
		href := strings.TrimSpace(m[2])
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			a.ExternalLinks++
		} else {
			a.InternalLinks++
		}
	}

	if a.WordCount < 300 {
		a.Recommendations = append(a.Recommendations, "Content is quite short. Consider adding more valuable information.")
	}
	if len(a.Headings) == 0 {
		a.Recommendations = append(a.Recommendations, "No headings found. Add headings to improve content structure.")
	} else {
		h1 := 0
		for _, h := range a.Headings {
			if h.Level == 1 {
				h1++
			}
		}
		if h1 > 1 {
			a.Recommendations = append(a.Recommendations, "Multiple H1 headings found. Use only one H1 per page.")
		}
		if h1 == 0 {
			a.Recommendations = append(a.Recommendations, "No H1 heading found. Add a main heading to your content.")
		}
	}
	if a.InternalLinks+a.ExternalLinks == 0 {
		a.Recommendations = append(a.Recommendations, "No links found. Consider adding relevant internal and external links.")
	}
	return a
}
