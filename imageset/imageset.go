// Package imageset builds responsive image paths, srcsets and placeholders,
// and generates the resized variants those paths point at.
package imageset

import (
	"encoding/base64"
	"fmt"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// OptimizedPrefix is the URL prefix of generated variants.
const OptimizedPrefix = "/images/optimized/"

// Breakpoint is a named viewport width.
type Breakpoint struct {
	Width int    `json:"width"`
	Name  string `json:"name"`
}

// DefaultBreakpoints are ordered narrowest first.
var DefaultBreakpoints = []Breakpoint{
	{320, "xs"},
	{640, "sm"},
	{768, "md"},
	{1024, "lg"},
	{1280, "xl"},
	{1920, "2xl"},
}

// Formats in order of preference.
const (
	WebP = "webp"
	AVIF = "avif"
	JPG  = "jpg"
	PNG  = "png"
)

// SupportedFormats lists every format a variant path may use.
var SupportedFormats = []string{WebP, AVIF, JPG, PNG}

// DefaultQuality is the encoder quality per format.
var DefaultQuality = map[string]int{
	WebP: 85,
	AVIF: 75,
	JPG:  85,
	PNG:  100,
}

func isExternal(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Format returns the lowercased extension of src, or "jpg" when it has none.
func Format(src string) string {
	ext := path.Ext(src)
	if ext == "" {
		return JPG
	}
	return strings.ToLower(ext[1:])
}

// OptimizedPath returns the variant path for src. Zero width, empty format
// and zero quality are left out of the name; the extension is format, or
// the source extension. External URLs are returned unchanged.
func OptimizedPath(src string, width int, format string, quality int) string {
	if isExternal(src) {
		return src
	}
	base := strings.TrimLeft(src, "/")
	base = strings.TrimSuffix(base, path.Ext(base))

	var params []string
	if width > 0 {
		params = append(params, "w_"+strconv.Itoa(width))
	}
	if format != "" {
		params = append(params, format)
	}
	if quality > 0 {
		params = append(params, "q_"+strconv.Itoa(quality))
	}

	p := OptimizedPrefix + base
	if len(params) > 0 {
		p += "_" + strings.Join(params, "_")
	}
	ext := format
	if ext == "" {
		ext = Format(src)
	}
	return p + "." + ext
}

// SrcSet returns a srcset value with one candidate per breakpoint.
func SrcSet(src string, bps []Breakpoint, format string, quality int) string {
	if bps == nil {
		bps = DefaultBreakpoints
	}
	parts := make([]string, len(bps))
	for i, bp := range bps {
		parts[i] = fmt.Sprintf("%s %dw", OptimizedPath(src, bp.Width, format, quality), bp.Width)
	}
	return strings.Join(parts, ", ")
}

// Sizes returns a sizes value; the last breakpoint has no media query.
func Sizes(bps []Breakpoint) string {
	if bps == nil {
		bps = DefaultBreakpoints
	}
	parts := make([]string, len(bps))
	for i, bp := range bps {
		if i == len(bps)-1 {
			parts[i] = fmt.Sprintf("%dpx", bp.Width)
			continue
		}
		parts[i] = fmt.Sprintf("(max-width: %dpx) %dpx", bp.Width, bp.Width)
	}
	return strings.Join(parts, ", ")
}

// Options tunes ResponsiveSet and Picture. Zero fields take defaults:
// DefaultBreakpoints, formats webp and jpg, DefaultQuality and Sizes.
type Options struct {
	Breakpoints   []Breakpoint
	Formats       []string
	Quality       int
	Sizes         string
	Loading       string
	FetchPriority string
	Class         string
}

func (o Options) withDefaults() Options {
	if len(o.Breakpoints) == 0 {
		o.Breakpoints = DefaultBreakpoints
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{WebP, JPG}
	}
	if o.Sizes == "" {
		o.Sizes = Sizes(o.Breakpoints)
	}
	if o.Loading == "" {
		o.Loading = "lazy"
	}
	return o
}

func (o Options) quality(format string) int {
	if o.Quality > 0 {
		return o.Quality
	}
	return DefaultQuality[format]
}

// Set is the responsive image data for one format.
type Set struct {
	Src    string `json:"src"`
	SrcSet string `json:"srcset"`
	Sizes  string `json:"sizes"`
}

// ResponsiveSet returns a Set per requested format.
func ResponsiveSet(src string, o Options) map[string]Set {
	o = o.withDefaults()
	out := make(map[string]Set, len(o.Formats))
	for _, f := range o.Formats {
		q := o.quality(f)
		out[f] = Set{
			Src:    OptimizedPath(src, 0, f, q),
			SrcSet: SrcSet(src, o.Breakpoints, f, q),
			Sizes:  o.Sizes,
		}
	}
	return out
}

// Source is one <source> element of a picture.
type Source struct {
	SrcSet string `json:"srcset"`
	Sizes  string `json:"sizes"`
	Type   string `json:"type"`
}

// Img is the fallback <img> of a picture.
type Img struct {
	Src           string `json:"src"`
	Alt           string `json:"alt"`
	Loading       string `json:"loading"`
	FetchPriority string `json:"fetchpriority,omitempty"`
	Class         string `json:"class,omitempty"`
}

// PictureConfig describes a <picture> element.
type PictureConfig struct {
	Sources []Source `json:"sources"`
	Img     Img      `json:"img"`
}

// Picture returns sources for every format but the last; the last format
// is the fallback img at the widest breakpoint.
func Picture(src, alt string, o Options) PictureConfig {
	o = o.withDefaults()
	last := o.Formats[len(o.Formats)-1]
	pc := PictureConfig{Sources: make([]Source, 0, len(o.Formats)-1)}
	for _, f := range o.Formats[:len(o.Formats)-1] {
		pc.Sources = append(pc.Sources, Source{
			SrcSet: SrcSet(src, o.Breakpoints, f, o.quality(f)),
			Sizes:  o.Sizes,
			Type:   "image/" + f,
		})
	}
	pc.Img = Img{
		Src:           OptimizedPath(src, o.Breakpoints[len(o.Breakpoints)-1].Width, last, o.quality(last)),
		Alt:           alt,
		Loading:       o.Loading,
		FetchPriority: o.FetchPriority,
		Class:         o.Class,
	}
	return pc
}

func svgDataURI(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// Placeholder returns a solid-color SVG data URI. Defaults: 10x10, #f3f4f6.
func Placeholder(width, height int, color string) string {
	if width <= 0 {
		width = 10
	}
	if height <= 0 {
		height = 10
	}
	if color == "" {
		color = "#f3f4f6"
	}
	return svgDataURI(fmt.Sprintf(
		`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg"><rect width="100%%" height="100%%" fill="%s"/></svg>`,
		width, height, color))
}

// BlurPlaceholder returns a blurred SVG data URI 40px wide with the aspect
// ratio of width x height.
func BlurPlaceholder(width, height int, color string) string {
	if color == "" {
		color = "#e5e7eb"
	}
	const w = 40
	h := w
	if width > 0 && height > 0 {
		h = int(math.Round(w / (float64(width) / float64(height))))
	}
	return svgDataURI(fmt.Sprintf(
		`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg"><defs><filter id="blur"><feGaussianBlur stdDeviation="2"/></filter></defs><rect width="100%%" height="100%%" fill="%s" filter="url(#blur)"/></svg>`,
		w, h, color))
}

var reImageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|avif|svg)$`)

// ValidPath reports whether src is an external URL or a path with an image
// extension.
func ValidPath(src string) bool {
	if src == "" {
		return false
	}
	return isExternal(src) || reImageExt.MatchString(src)
}

// Metadata is what can be learned about an image from its name.
type Metadata struct {
	Src         string  `json:"src"`
	Format      string  `json:"format"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	AspectRatio float64 `json:"aspect_ratio,omitempty"`
}

var reDimensions = regexp.MustCompile(`(\d+)x(\d+)`)

// ParseMetadata reads the format and an optional WxH pair from the filename,
// as in "hero_800x600.jpg".
func ParseMetadata(src string) Metadata {
	name := path.Base(src)
	m := Metadata{Src: src, Format: Format(name)}
	if d := reDimensions.FindStringSubmatch(name); d != nil {
		m.Width, _ = strconv.Atoi(d[1])
		m.Height, _ = strconv.Atoi(d[2])
		if m.Height > 0 {
			m.AspectRatio = float64(m.Width) / float64(m.Height)
		}
	}
	return m
}

// Fit modes for OptimalDimensions.
const (
	Contain = "contain"
	Cover   = "cover"
	Fill    = "fill"
)

// Dimensions is a width and height in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OptimalDimensions sizes an image of the given aspect ratio for a
// container. Unknown modes behave like Fill.
func OptimalDimensions(containerW, containerH int, ratio float64, mode string) Dimensions {
	if ratio <= 0 || containerH <= 0 {
		return Dimensions{containerW, containerH}
	}
	containerRatio := float64(containerW) / float64(containerH)
	byWidth := Dimensions{containerW, int(math.Round(float64(containerW) / ratio))}
	byHeight := Dimensions{int(math.Round(float64(containerH) * ratio)), containerH}
	switch mode {
	case Contain:
		if ratio > containerRatio {
			return byWidth
		}
		return byHeight
	case Cover:
		if ratio > containerRatio {
			return byHeight
		}
		return byWidth
	}
	return Dimensions{containerW, containerH}
}

// Loading holds img loading hints.
type Loading struct {
	Loading       string `json:"loading"`
	FetchPriority string `json:"fetchpriority"`
}

// LoadingStrategy returns eager/high for critical or above-the-fold images,
// lazy/low otherwise.
func LoadingStrategy(critical, aboveFold bool) Loading {
	if critical || aboveFold {
		return Loading{"eager", "high"}
	}
	return Loading{"lazy", "low"}
}
