package folio

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// serveStaticOrEmbedded serves name from the static dir when the site
// provides one, falling back to the copy embedded in the binary.
func (a *App) serveStaticOrEmbedded(c echo.Context, name string) error {
	local := filepath.Join(a.staticDir, name)
	if _, err := os.Stat(local); err == nil {
		return c.File(local)
	}
	data, err := fs.ReadFile(EmbeddedAssets, path.Join("embedded", name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.ErrNotFound
		}
		return err
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = echo.MIMEOctetStream
	}
	return c.Blob(http.StatusOK, ctype, data)
}

// handleRobots serves robots.txt from the static dir, or a generated one
// that keeps crawlers out of the admin and the API.
func (a *App) handleRobots(c echo.Context) error {
	local := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(local); err == nil {
		return c.File(local)
	}
	return c.String(http.StatusOK, a.robotsTxt())
}
