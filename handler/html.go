package handler

import (
	"embed"
	"html/template"
	"net/http"

	"stub-router/model"

	"github.com/rs/zerolog/log"
)

//go:embed embed.html password.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "embed.html", "password.html"))

// embedData feeds the synthetic preview page served to crawlers.
type embedData struct {
	Title       string
	URL         string
	Description string
	Image       string
}

// passwordData feeds the challenge page; Attempted echoes a failed try
// back into the form.
type passwordData struct {
	Attempted string
}

func renderEmbed(w http.ResponseWriter, rec *model.LinkRecord) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	data := embedData{
		Title:       rec.Title,
		URL:         rec.URL,
		Description: rec.Description,
		Image:       rec.Image,
	}
	if err := templates.ExecuteTemplate(w, "embed.html", data); err != nil {
		log.Error().Err(err).Msg("Failed to execute embed template")
	}
}

func renderPasswordPage(w http.ResponseWriter, attempted string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Always 200 so the browser re-renders the form instead of caching a 401
	w.WriteHeader(http.StatusOK)
	if err := templates.ExecuteTemplate(w, "password.html", passwordData{Attempted: attempted}); err != nil {
		log.Error().Err(err).Msg("Failed to execute password template")
	}
}
