package handler

import (
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"xmrig-webui/internal/config"
)

const indexPage = "index.html"

// StaticHandler serves the web UI from the document root.
type StaticHandler struct {
	fsys  fs.FS
	files http.Handler
}

// NewStaticHandler creates a StaticHandler rooted at cfg.Static.Root.
func NewStaticHandler(cfg *config.Config) *StaticHandler {
	fsys := os.DirFS(cfg.Static.Root)
	return &StaticHandler{
		fsys:  fsys,
		files: http.FileServer(http.FS(fsys)),
	}
}

// Handle delegates to the standard file server, which resolves index pages,
// lists directories, infers MIME types and answers 404, 304 and Range
// requests. An explicit .../index.html is served in place instead of being
// redirected to its directory.
func (h *StaticHandler) Handle(c echo.Context) error {
	p := c.Request().URL.Path
	if strings.HasSuffix(p, "/"+indexPage) {
		return h.serveFile(c, strings.TrimPrefix(path.Clean(p), "/"))
	}

	h.files.ServeHTTP(c.Response(), c.Request())
	return nil
}

func (h *StaticHandler) serveFile(c echo.Context, name string) error {
	f, err := h.fsys.Open(name)
	if err != nil {
		return echo.ErrNotFound
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return echo.ErrNotFound
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		return echo.ErrNotFound
	}

	http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), rs)
	return nil
}
