package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/store"
)

const (
	maxImageWidth = 1920
	jpegQuality   = 85
	maxUploadSize = 10 << 20 // 10MB
	uploadsSubdir = "uploads"
)

// Types that would execute in the browser when served from our origin.
var blockedMimeTypes = map[string]bool{
	"text/html":              true,
	"image/svg+xml":          true,
	"application/javascript": true,
	"text/javascript":        true,
	"application/xhtml+xml":  true,
	"text/xml":               true,
	"application/xml":        true,
}

// Uploads are served by extension, so these are refused whatever the
// content sniffs as.
var blockedExtensions = map[string]bool{
	".htm": true, ".html": true, ".xhtml": true, ".xht": true,
	".svg": true, ".svgz": true, ".xml": true, ".xsl": true,
	".js": true, ".mjs": true,
}

// extensionAllowed reports whether name would be served with a type that
// is safe to render from our origin.
func extensionAllowed(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return true
	}
	if blockedExtensions[ext] {
		return false
	}
	t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	return err != nil || !blockedMimeTypes[t]
}

var (
	reUnsafeName = regexp.MustCompile(`[^a-z0-9.-]`)
	reHyphens    = regexp.MustCompile(`-+`)
)

// uploadFailure is the per-file result of an upload that did not succeed.
type uploadFailure struct {
	Error    string `json:"error"`
	Filename string `json:"filename"`
}

// sanitizeFilename lowercases name and reduces it to letters, digits, dots
// and single hyphens.
func sanitizeFilename(name string) string {
	s := reUnsafeName.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = reHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// uniqueFilename keeps a readable stem of the original name and appends a
// random suffix.
func uniqueFilename(original string) string {
	ext := strings.ToLower(path.Ext(original))
	stem := sanitizeFilename(strings.TrimSuffix(filepath.Base(original), path.Ext(original)))
	stem = strings.ReplaceAll(stem, ".", "-")
	if stem == "" {
		stem = "file"
	}
	if len(stem) > 60 {
		stem = strings.Trim(stem[:60], "-")
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return stem + "-" + id + sanitizeFilename(ext)
}

func uploadURL(name string) string { return "/" + uploadsSubdir + "/" + name }

// diskPath maps a stored media file_path onto the upload dir.
func (a *App) diskPath(filePath string) string {
	return filepath.Join(a.Config.UploadDir, filepath.FromSlash(filePath))
}

// processImage decodes data and downscales it to maxImageWidth. It returns
// the decoded image and the bytes to store; data is returned unchanged
// when no resize was needed.
func processImage(data []byte) (image.Image, []byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxImageWidth {
		return img, data, nil
	}

	newH := h * maxImageWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return dst, buf.Bytes(), nil
}

func isRaster(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif":
		return true
	}
	return false
}

// saveUpload stores one uploaded file under the uploads dir, records it in
// the media library and generates responsive variants for raster images.
func (a *App) saveUpload(ctx context.Context, fh *multipart.FileHeader) (store.MediaFile, error) {
	if fh.Size > maxUploadSize {
		return store.MediaFile{}, apperr.Validation("File too large (max 10MB)", "files")
	}
	src, err := fh.Open()
	if err != nil {
		return store.MediaFile{}, err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return store.MediaFile{}, err
	}
	if len(data) > maxUploadSize {
		return store.MediaFile{}, apperr.Validation("File too large (max 10MB)", "files")
	}
	if len(data) == 0 {
		return store.MediaFile{}, apperr.Validation("File is empty", "files")
	}

	if !extensionAllowed(fh.Filename) {
		return store.MediaFile{}, apperr.Validation("File type not allowed: "+strings.ToLower(path.Ext(fh.Filename)), "files")
	}

	contentType := strings.TrimSpace(strings.Split(http.DetectContentType(data), ";")[0])
	if contentType == "application/octet-stream" || strings.HasPrefix(contentType, "text/plain") {
		if declared := fh.Header.Get("Content-Type"); declared != "" {
			contentType = strings.TrimSpace(strings.Split(declared, ";")[0])
		}
	}
	if blockedMimeTypes[contentType] {
		return store.MediaFile{}, apperr.Validation("File type not allowed: "+contentType, "files")
	}

	in := store.MediaInput{
		OriginalFilename: fh.Filename,
		MimeType:         contentType,
	}
	var img image.Image
	if isRaster(contentType) {
		decoded, out, err := processImage(data)
		if err != nil {
			return store.MediaFile{}, apperr.Validation("Invalid image: "+err.Error(), "files")
		}
		img, data = decoded, out
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		in.Width, in.Height = &w, &h
	}

	name := uniqueFilename(fh.Filename)
	dir := filepath.Join(a.Config.UploadDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return store.MediaFile{}, fmt.Errorf("create uploads dir: %w", err)
	}
	file := filepath.Join(dir, name)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return store.MediaFile{}, fmt.Errorf("write upload: %w", err)
	}

	in.Filename = name
	in.FilePath = path.Join(uploadsSubdir, name)
	in.FileURL = uploadURL(name)
	in.FileSize = int64(len(data))
	m, err := a.Store.Media.Create(ctx, in)
	if err != nil {
		_ = os.Remove(file)
		return store.MediaFile{}, err
	}

	if img != nil {
		if _, err := a.Images.Generate(ctx, m.FileURL, img); err != nil {
			a.logger.Warn().Err(err).Str("file", m.Filename).Msg("generate image variants")
		}
	}
	return m, nil
}

// uploadFiles saves every file of the multipart field "files". Each entry
// of the result is either the stored MediaFile or an uploadFailure.
func (a *App) uploadFiles(ctx context.Context, form *multipart.Form) ([]any, int) {
	files := form.File["files"]
	results := make([]any, 0, len(files))
	saved := 0
	for _, fh := range files {
		m, err := a.saveUpload(ctx, fh)
		a.Metrics.ObserveUpload(err == nil)
		if err != nil {
			a.logger.Warn().Err(err).Str("filename", fh.Filename).Msg("upload failed")
			msg := "Failed to process file: " + fh.Filename
			if ae, ok := apperr.As(err); ok && ae.Status < 500 {
				msg = ae.Message
			}
			results = append(results, uploadFailure{Error: msg, Filename: fh.Filename})
			continue
		}
		saved++
		results = append(results, m)
	}
	if saved > 0 {
		a.invalidate(ctx)
	}
	return results, saved
}

// removeMediaFiles unlinks the stored files and their variants. Missing
// files are not an error; the records are already gone.
func (a *App) removeMediaFiles(files []store.MediaFile) {
	for _, m := range files {
		if err := os.Remove(a.diskPath(m.FilePath)); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn().Err(err).Str("file", m.FilePath).Msg("remove upload")
		}
		if m.FileType == store.MediaImage {
			if _, err := a.Images.Remove(m.FileURL); err != nil {
				a.logger.Warn().Err(err).Str("file", m.FileURL).Msg("remove image variants")
			}
		}
	}
}

// deleteMedia removes media records and their files.
func (a *App) deleteMedia(ctx context.Context, ids []int64) (int, error) {
	deleted, err := a.Store.Media.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	a.removeMediaFiles(deleted)
	if len(deleted) > 0 {
		a.invalidate(ctx)
	}
	return len(deleted), nil
}

// renameMedia renames a stored file on disk and in the library. The
// variants are regenerated under the new name.
func (a *App) renameMedia(ctx context.Context, m store.MediaFile, newName string) (store.MediaFile, error) {
	name := sanitizeFilename(newName)
	if name == "" || name == "." || name == ".." {
		return m, apperr.Validation("New filename cannot be empty", "filename")
	}
	if name == m.Filename {
		return m, nil
	}
	if !extensionAllowed(name) {
		return m, apperr.Validation("File type not allowed: "+path.Ext(name), "filename")
	}
	taken, err := a.Store.Media.FilenameExists(ctx, name)
	if err != nil {
		return m, err
	}
	if taken {
		return m, apperr.Conflict("A file named "+name+" already exists", "filename")
	}

	newPath := path.Join(uploadsSubdir, name)
	oldDisk, newDisk := a.diskPath(m.FilePath), a.diskPath(newPath)
	if err := os.Rename(oldDisk, newDisk); err != nil {
		return m, apperr.Wrap(err, "Failed to rename file", apperr.CodeInternal, http.StatusInternalServerError)
	}
	renamed, err := a.Store.Media.Rename(ctx, m.ID, name, newPath, uploadURL(name))
	if err != nil {
		if rerr := os.Rename(newDisk, oldDisk); rerr != nil {
			a.logger.Error().Err(rerr).Str("file", newDisk).Msg("undo rename")
		}
		return m, err
	}

	if renamed.FileType == store.MediaImage {
		if _, err := a.Images.Remove(m.FileURL); err != nil {
			a.logger.Warn().Err(err).Str("file", m.FileURL).Msg("remove image variants")
		}
		if isRaster(renamed.MimeType) {
			if _, err := a.Images.GenerateFile(ctx, renamed.FileURL); err != nil {
				a.logger.Warn().Err(err).Str("file", renamed.FileURL).Msg("generate image variants")
			}
		}
	}
	a.invalidate(ctx)
	return renamed, nil
}
