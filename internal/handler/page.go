package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/moodmap/internal/model"
)

// PageHandler renders the map page. Templates are parsed once at startup.
//
// base.html defines the page shell with a {{template "content" .}}
// placeholder, and map.html fills it with {{define "content"}}.
type PageHandler struct {
	templates     *template.Template
	googleEnabled bool
	logger        *slog.Logger
}

// NewPageHandler parses base.html and map.html from templatesFS.
func NewPageHandler(templatesFS fs.FS, googleEnabled bool, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templatesFS, "base.html", "map.html")
	if err != nil {
		return nil, fmt.Errorf("handler: parsing page templates: %w", err)
	}

	return &PageHandler{
		templates:     tmpl,
		googleEnabled: googleEnabled,
		logger:        logger,
	}, nil
}

type pageData struct {
	Title         string
	Districts     []model.District
	Moods         []model.Mood
	GoogleEnabled bool
}

// HandleMap serves GET /.
func (h *PageHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:         "Mood Map",
		Districts:     model.Districts,
		Moods:         model.Moods,
		GoogleEnabled: h.googleEnabled,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
