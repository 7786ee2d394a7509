package imageset

import (
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// Variant is one generated file.
type Variant struct {
	Width  int    `json:"width"`
	Format string `json:"format"`
	URL    string `json:"url"`
	File   string `json:"-"`
}

// Generator writes resized variants under Root, which is the directory
// served at "/". Only JPG and PNG are encoded; other formats in Formats
// are skipped.
type Generator struct {
	Root        string
	Breakpoints []Breakpoint
	Formats     []string
	Quality     int
	// Workers bounds concurrent encodes; 0 means 4.
	Workers int
}

// NewGenerator returns a Generator writing JPG variants at the default
// breakpoints.
func NewGenerator(root string) *Generator {
	return &Generator{Root: root, Breakpoints: DefaultBreakpoints, Formats: []string{JPG}}
}

func (g *Generator) filePath(url string) string {
	return filepath.Join(g.Root, filepath.FromSlash(strings.TrimPrefix(url, "/")))
}

func encodable(format string) bool {
	return format == JPG || format == PNG
}

// Generate resizes img, the decoded content of src, to every breakpoint no
// wider than the image itself and writes one file per breakpoint and
// format. It returns the variants written.
func (g *Generator) Generate(ctx context.Context, src string, img image.Image) ([]Variant, error) {
	if isExternal(src) {
		return nil, fmt.Errorf("generate variants: external source %q", src)
	}
	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()

	var jobs []Variant
	for _, bp := range g.Breakpoints {
		if bp.Width > srcW {
			continue
		}
		for _, f := range g.Formats {
			if !encodable(f) {
				continue
			}
			url := OptimizedPath(src, bp.Width, f, g.quality(f))
			jobs = append(jobs, Variant{Width: bp.Width, Format: f, URL: url, File: g.filePath(url)})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(jobs[0].File), 0o755); err != nil {
		return nil, fmt.Errorf("create variant dir: %w", err)
	}

	workers := g.Workers
	if workers <= 0 {
		workers = 4
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, v := range jobs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			resized := imaging.Fit(img, v.Width, srcH, imaging.Lanczos)
			var opts []imaging.EncodeOption
			if v.Format == JPG {
				opts = append(opts, imaging.JPEGQuality(g.quality(JPG)))
			}
			if err := imaging.Save(resized, v.File, opts...); err != nil {
				return fmt.Errorf("write variant %s: %w", v.URL, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, v := range jobs {
			_ = os.Remove(v.File)
		}
		return nil, err
	}
	return jobs, nil
}

// GenerateFile decodes the file served at src from Root and generates its
// variants.
func (g *Generator) GenerateFile(ctx context.Context, src string) ([]Variant, error) {
	img, err := imaging.Open(g.filePath(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	return g.Generate(ctx, src, img)
}

// Remove deletes every variant of src and returns how many were removed.
func (g *Generator) Remove(src string) (int, error) {
	if isExternal(src) {
		return 0, nil
	}
	base := strings.TrimLeft(src, "/")
	base = strings.TrimSuffix(base, path.Ext(base))
	pattern := g.filePath(OptimizedPrefix+base) + "_w_*"
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return n, fmt.Errorf("remove variant: %w", err)
		}
		n++
	}
	return n, nil
}

func (g *Generator) quality(format string) int {
	if g.Quality > 0 {
		return g.Quality
	}
	return DefaultQuality[format]
}
