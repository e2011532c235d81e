package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/Jackevansevo/jeddit/internal/markdown"
	"github.com/Jackevansevo/jeddit/internal/reddit"
)

// pages are the templates rendered on top of the base layout.
var pages = []string{
	"listing.html",
	"post.html",
	"subs.html",
	"search.html",
	"error.html",
}

// PageData is the data handed to every template.
type PageData struct {
	User   *reddit.Account // nil when anonymous
	Stats  *reddit.RateStatus
	Pinned []string

	Title     string
	Subreddit string
	Category  string
	Query     string

	Listing  *reddit.Listing
	Post     *reddit.Link
	Comments []*reddit.Comment
	Subs     []*reddit.Subreddit

	PrevURL string
	NextURL string

	// Error page fields.
	Status  int
	Message string
}

// Renderer renders the server-side HTML pages.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses all page templates from the asset filesystem. Each
// page is parsed together with the base layout.
func NewRenderer(assets fs.FS) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		t, err := template.New("base.html").Funcs(funcs).ParseFS(assets,
			"templates/base.html", "templates/_links.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

// Render writes the page with the given status.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data *PageData) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown template %q", page)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return t.Execute(w, data)
}

var funcs = template.FuncMap{
	"marked": markdown.Render,
	"ago":    relativeTime,
	"num":    CompactNumber,
	"deref":  func(b *bool) bool { return b != nil && *b },
}

// relativeTime formats a Reddit created_utc timestamp as "3h ago".
func relativeTime(createdUTC float64) string {
	d := time.Since(time.Unix(int64(createdUTC), 0))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/(24*365)))
	}
}

// CompactNumber formats scores and comment counts the way Reddit renders
// them: 999 stays as-is, 12345 becomes 12.3k. Shared with the front
// command so the CLI and web UI agree.
func CompactNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%.1fk", float64(n)/1000)
	return strings.Replace(s, ".0k", "k", 1)
}
