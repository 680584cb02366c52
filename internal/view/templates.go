package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/identity"
	"github.com/esora/officine/internal/nav"
	"github.com/esora/officine/internal/shared"
	"github.com/esora/officine/internal/workflow"
	"github.com/esora/officine/web"
)

// Engine renders HTML templates. Each page is parsed into its own clone of
// the shared layouts and partials.
type Engine struct {
	pages map[string]*template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *identity.User
	Menu        []nav.Item
	Counts      counters.Snapshot
	Data        any
}

var printer = message.NewPrinter(language.French)

// displayZone is the zone dates are shown in.
var displayZone = mustZone("Africa/Dakar")

// DisplayZone returns the zone dates are shown and grouped in.
func DisplayZone() *time.Location {
	return displayZone
}

func mustZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatMoney renders an amount in FCFA with French digit grouping.
func FormatMoney(amount decimal.Decimal) string {
	return printer.Sprintf("%d FCFA", amount.Round(0).IntPart())
}

// FormatCount renders an integer with French digit grouping.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent prints d with one decimal and a decimal comma.
func FormatPercent(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(1), ".", ",", 1) + " %"
}

func formatDateTime(v any) string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return ""
		}
		t = *x
	default:
		return ""
	}
	if t.IsZero() {
		return ""
	}
	return t.In(displayZone).Format("02/01/2006 15:04")
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(displayZone).Format("02/01/2006")
		},
		"formatDateTime": formatDateTime,
		"formatMoney":    FormatMoney,
		"formatCount":    FormatCount,
		"statusLabel":    func(s workflow.Status) string { return s.Label() },
		"statusTone":     func(s workflow.Status) string { return s.Tone() },
		"percent":        FormatPercent,
	}
	base, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(web.Templates, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(web.Templates, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages["pages/"+path.Base(file)] = clone
	}
	return &Engine{pages: pages}, nil
}

// Render executes a named page with TemplateData. The page is rendered to a
// buffer first so a template error never leaves a half written response.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	tpl, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, path.Base(name), data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
