package handlers

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safenet/internal/models"
	"safenet/internal/utils"
)

const pageTTL = time.Hour

type pageContent struct {
	Title string
	Body  template.HTML
}

// PageHandler serves the informational markdown pages.
type PageHandler struct {
	dir   string
	cache *utils.Cache
	log   *zap.Logger
}

func NewPageHandler(dir string, log *zap.Logger) (*PageHandler, error) {
	c, err := utils.NewCache(16)
	if err != nil {
		return nil, err
	}
	return &PageHandler{dir: dir, cache: c, log: log}, nil
}

func (h *PageHandler) Home(c *gin.Context) {
	Render(c, http.StatusOK, "home.html", gin.H{
		"Categories": models.ReportCategories,
	})
}

// Page returns a handler for one markdown file under the pages directory.
func (h *PageHandler) Page(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := h.load(name, title)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				NotFound(c)
				return
			}
			handleError(c, h.log, err)
			return
		}
		Render(c, http.StatusOK, "page.html", gin.H{"Page": page})
	}
}

func (h *PageHandler) load(name, title string) (*pageContent, error) {
	if v, ok := h.cache.Get(name).(*pageContent); ok {
		return v, nil
	}
	src, err := os.ReadFile(filepath.Join(h.dir, name+".md"))
	if err != nil {
		return nil, err
	}
	page := &pageContent{Title: title, Body: utils.RenderMarkdown(string(src))}
	h.cache.Set(name, page, pageTTL)
	return page, nil
}
