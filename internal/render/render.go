// Package render turns page view-models into HTML. Rendering reads nothing but
// the view it is given.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"unicode/utf8"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static is the stylesheet tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Page and fragment template names.
const (
	PageTimeline = "timeline"
	PageFriends  = "friends"

	FragmentFeed        = "feed"
	FragmentPost        = "post"
	FragmentComments    = "comments"
	FragmentFriendsList = "friends_list"
	FragmentRequests    = "requests"
	FragmentSuggestions = "suggestions"
	FragmentResults     = "results"
	FragmentToast       = "toast"
	FragmentBadge       = "badge"
	FragmentConfirm     = "confirm"
)

var funcs = template.FuncMap{
	"likeLabel": func(liked bool) string {
		if liked {
			return "Liked"
		}
		return "Like"
	},
	"initial": func(name string) string {
		r, size := utf8.DecodeRuneInString(strings.TrimSpace(name))
		if size == 0 {
			return "?"
		}
		return strings.ToUpper(string(r))
	},
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

// Renderer holds the parsed template set. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("friendfeed").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the template name executed with data.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	if r.tmpl.Lookup(name) == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	// A failing template writes nothing.
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Part is one fragment of a multi-fragment response.
type Part struct {
	Name string
	Data any
}

// RenderParts writes several fragments in order.
func (r *Renderer) RenderParts(w io.Writer, parts ...Part) error {
	for _, p := range parts {
		if err := r.Render(w, p.Name, p.Data); err != nil {
			return err
		}
	}
	return nil
}
