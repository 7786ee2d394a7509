package imageset

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func TestOptimizedPath(t *testing.T) {
	tests := []struct {
		src     string
		width   int
		format  string
		quality int
		want    string
	}{
		{"/uploads/hero.png", 640, "webp", 85, "/images/optimized/uploads/hero_w_640_webp_q_85.webp"},
		{"uploads/hero.png", 0, "", 0, "/images/optimized/uploads/hero.png"},
		{"/a/b.JPG", 320, "", 0, "/images/optimized/a/b_w_320.jpg"},
		{"/noext", 0, "jpg", 85, "/images/optimized/noext_jpg_q_85.jpg"},
		{"https://cdn.example.com/x.png", 640, "webp", 85, "https://cdn.example.com/x.png"},
	}
	for _, tt := range tests {
		if got := OptimizedPath(tt.src, tt.width, tt.format, tt.quality); got != tt.want {
			t.Errorf("OptimizedPath(%q, %d, %q, %d) = %q, want %q", tt.src, tt.width, tt.format, tt.quality, got, tt.want)
		}
	}
}

func TestSrcSetAndSizes(t *testing.T) {
	bps := []Breakpoint{{320, "xs"}, {640, "sm"}}
	got := SrcSet("/a.jpg", bps, "jpg", 85)
	want := "/images/optimized/a_w_320_jpg_q_85.jpg 320w, /images/optimized/a_w_640_jpg_q_85.jpg 640w"
	if got != want {
		t.Errorf("SrcSet = %q, want %q", got, want)
	}
	if got := Sizes(bps); got != "(max-width: 320px) 320px, 640px" {
		t.Errorf("Sizes = %q", got)
	}
	if got := Sizes(nil); !strings.HasSuffix(got, ", 1920px") {
		t.Errorf("default Sizes = %q", got)
	}
}

func TestResponsiveSet(t *testing.T) {
	set := ResponsiveSet("/a.png", Options{})
	if len(set) != 2 {
		t.Fatalf("expected webp and jpg, got %v", set)
	}
	if got := set["webp"].Src; got != "/images/optimized/a_webp_q_85.webp" {
		t.Errorf("webp src = %q", got)
	}
	if !strings.Contains(set["jpg"].SrcSet, "a_w_1920_jpg_q_85.jpg 1920w") {
		t.Errorf("jpg srcset = %q", set["jpg"].SrcSet)
	}
	set = ResponsiveSet("/a.png", Options{Formats: []string{"avif"}, Quality: 50})
	if got := set["avif"].Src; got != "/images/optimized/a_avif_q_50.avif" {
		t.Errorf("avif src = %q", got)
	}
}

func TestPicture(t *testing.T) {
	pc := Picture("/a.jpg", "Alt", Options{Formats: []string{"avif", "webp", "jpg"}})
	if len(pc.Sources) != 2 {
		t.Fatalf("sources = %d", len(pc.Sources))
	}
	if pc.Sources[0].Type != "image/avif" || pc.Sources[1].Type != "image/webp" {
		t.Errorf("source types = %q, %q", pc.Sources[0].Type, pc.Sources[1].Type)
	}
	if pc.Img.Src != "/images/optimized/a_w_1920_jpg_q_85.jpg" {
		t.Errorf("img src = %q", pc.Img.Src)
	}
	if pc.Img.Loading != "lazy" || pc.Img.Alt != "Alt" {
		t.Errorf("img = %+v", pc.Img)
	}
}

func decodeDataURI(t *testing.T, uri string) string {
	t.Helper()
	const prefix = "data:image/svg+xml;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("not an svg data uri: %q", uri)
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestPlaceholders(t *testing.T) {
	svg := decodeDataURI(t, Placeholder(0, 0, ""))
	if !strings.Contains(svg, `width="10" height="10"`) || !strings.Contains(svg, "#f3f4f6") {
		t.Errorf("placeholder = %s", svg)
	}
	svg = decodeDataURI(t, BlurPlaceholder(1000, 500, "#000"))
	if !strings.Contains(svg, `width="40" height="20"`) {
		t.Errorf("blur placeholder = %s", svg)
	}
	if !strings.Contains(svg, "feGaussianBlur") {
		t.Errorf("blur placeholder missing filter: %s", svg)
	}
}

func TestValidPathAndMetadata(t *testing.T) {
	for src, want := range map[string]bool{
		"":                     false,
		"/a.PNG":               true,
		"/a.svg":               true,
		"/a.txt":               false,
		"https://x.com/a":      true,
		"/uploads/photo.jpeg":  true,
		"/uploads/photo.jpeg/": false,
	} {
		if got := ValidPath(src); got != want {
			t.Errorf("ValidPath(%q) = %v", src, got)
		}
	}

	m := ParseMetadata("/img/hero_800x600.JPG")
	if m.Format != "jpg" || m.Width != 800 || m.Height != 600 {
		t.Errorf("metadata = %+v", m)
	}
	if m.AspectRatio < 1.33 || m.AspectRatio > 1.34 {
		t.Errorf("aspect ratio = %v", m.AspectRatio)
	}
	if m := ParseMetadata("plain.png"); m.Width != 0 || m.Format != "png" {
		t.Errorf("metadata = %+v", m)
	}
}

func TestOptimalDimensions(t *testing.T) {
	tests := []struct {
		mode  string
		ratio float64
		want  Dimensions
	}{
		{Contain, 2, Dimensions{400, 200}},
		{Contain, 0.5, Dimensions{150, 300}},
		{Cover, 2, Dimensions{600, 300}},
		{Cover, 0.5, Dimensions{400, 800}},
		{Fill, 2, Dimensions{400, 300}},
		{"", 2, Dimensions{400, 300}},
	}
	for _, tt := range tests {
		if got := OptimalDimensions(400, 300, tt.ratio, tt.mode); got != tt.want {
			t.Errorf("OptimalDimensions(%q, %v) = %+v, want %+v", tt.mode, tt.ratio, got, tt.want)
		}
	}
}

func TestLoadingStrategy(t *testing.T) {
	if got := LoadingStrategy(true, false); got != (Loading{"eager", "high"}) {
		t.Errorf("critical = %+v", got)
	}
	if got := LoadingStrategy(false, true); got.Loading != "eager" {
		t.Errorf("above fold = %+v", got)
	}
	if got := LoadingStrategy(false, false); got != (Loading{"lazy", "low"}) {
		t.Errorf("default = %+v", got)
	}
}

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestGeneratorGenerateAndRemove(t *testing.T) {
	root := t.TempDir()
	g := NewGenerator(root)
	g.Formats = []string{"webp", "jpg", "png"}

	variants, err := g.Generate(context.Background(), "/uploads/pic.png", testImage(700, 350))
	if err != nil {
		t.Fatal(err)
	}
	// 320 and 640 fit; webp is skipped.
	if len(variants) != 4 {
		t.Fatalf("variants = %d: %+v", len(variants), variants)
	}
	for _, v := range variants {
		if v.Format == "webp" {
			t.Errorf("webp should not be encoded")
		}
		img, err := imaging.Open(v.File)
		if err != nil {
			t.Fatalf("open %s: %v", v.File, err)
		}
		if got := img.Bounds().Dx(); got != v.Width {
			t.Errorf("%s width = %d, want %d", v.URL, got, v.Width)
		}
		if got := img.Bounds().Dy(); got != v.Width/2 {
			t.Errorf("%s height = %d, want %d", v.URL, got, v.Width/2)
		}
	}
	want := filepath.Join(root, "images", "optimized", "uploads", "pic_w_320_jpg_q_85.jpg")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected %s: %v", want, err)
	}

	n, err := g.Remove("/uploads/pic.png")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("removed %d", n)
	}
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Errorf("variant still present: %v", err)
	}
}

func TestGeneratorSmallImage(t *testing.T) {
	g := NewGenerator(t.TempDir())
	variants, err := g.Generate(context.Background(), "/uploads/tiny.jpg", testImage(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(variants) != 0 {
		t.Errorf("expected no variants, got %d", len(variants))
	}
}

func TestGeneratorGenerateFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "uploads"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(testImage(400, 200), filepath.Join(root, "uploads", "f.jpg")); err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(root)
	variants, err := g.GenerateFile(context.Background(), "/uploads/f.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if len(variants) != 1 || variants[0].Width != 320 {
		t.Errorf("variants = %+v", variants)
	}
	if _, err := g.Generate(context.Background(), "https://x.com/a.jpg", testImage(10, 10)); err == nil {
		t.Error("expected error for external source")
	}
}
