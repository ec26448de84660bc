// Package templates renders the generator UI as templ components.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/JonMunkholm/DataForge/internal/core"
	"github.com/a-h/templ"
)

// FieldGroup is one fieldset of checkboxes on the form.
type FieldGroup struct {
	Name   string
	Fields []core.FieldInfo
}

// IndexParams feeds the generator form.
type IndexParams struct {
	Groups          []FieldGroup
	Presets         []core.Preset
	Formats         []core.Format
	DefaultRowCount int
	MaxRowCount     int

	// Set when the page is re-rendered after a rejected submission.
	Error    *core.UserMessage
	Selected map[core.FieldKind]bool
}

// htmlWriter writes escaped and raw HTML, keeping the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><style>` + pageCSS + `</style></head><body><main>`)
		if h.err != nil {
			return h.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// Index is the generator form page.
func Index(p IndexParams) templ.Component {
	return Layout("DataForge", indexBody(p))
}

func indexBody(p IndexParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1>DataForge</h1><p class="lead">Generate realistic test data as CSV, JSON, XML or SQL.</p>`)

		if p.Error != nil {
			if err := ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code).Render(ctx, w); err != nil {
				return err
			}
		}

		h.raw(`<form method="post" action="/generate">`)

		if len(p.Presets) > 0 {
			h.raw(`<label for="preset">Preset</label><select id="preset" name="preset"><option value="">Custom selection</option>`)
			for _, preset := range p.Presets {
				h.raw(`<option value="`)
				h.text(preset.Name)
				h.raw(`" title="`)
				h.text(preset.Description)
				h.raw(`">`)
				h.text(preset.Label)
				h.raw(`</option>`)
			}
			h.raw(`</select>`)
		}

		for _, g := range p.Groups {
			h.raw(`<fieldset><legend>`)
			h.text(g.Name)
			h.raw(`</legend>`)
			for _, f := range g.Fields {
				h.raw(`<label class="field"><input type="checkbox" name="fields" value="`)
				h.text(string(f.Kind))
				h.raw(`"`)
				if p.Selected[f.Kind] {
					h.raw(` checked`)
				}
				h.raw(`> `)
				h.text(f.Label)
				h.raw(`</label>`)
			}
			h.raw(`</fieldset>`)
		}

		h.raw(`<div class="row"><label for="count">Records</label>`)
		h.raw(`<input id="count" name="count" type="number" min="1" max="` + strconv.Itoa(p.MaxRowCount) +
			`" value="` + strconv.Itoa(p.DefaultRowCount) + `" required>`)
		h.raw(`<label for="seed">Seed</label><input id="seed" name="seed" inputmode="numeric" placeholder="random">`)
		h.raw(`<label for="format">Format</label><select id="format" name="format">`)
		for _, f := range p.Formats {
			h.raw(`<option value="`)
			h.text(string(f))
			h.raw(`">`)
			h.text(string(f))
			h.raw(`</option>`)
		}
		h.raw(`</select></div><button type="submit">Generate</button></form>`)
		return h.err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(` <span>`)
			h.text(action)
			h.raw(`</span>`)
		}
		h.raw(` <code>`)
		h.text(code)
		h.raw(`</code></div>`)
		return h.err
	})
}

const pageCSS = `body{font-family:system-ui,sans-serif;background:#f6f7f9;margin:0}
main{max-width:960px;margin:2rem auto;background:#fff;padding:2rem;border-radius:8px}
.lead{color:#555}fieldset{border:1px solid #ddd;border-radius:6px;margin:1rem 0}
.field{display:inline-block;min-width:12rem;margin:.25rem 0}
.row{display:flex;gap:.75rem;align-items:center;flex-wrap:wrap;margin:1rem 0}
.alert{background:#fdecea;border:1px solid #f5c2c0;padding:.75rem;border-radius:6px}
button{background:#2563eb;color:#fff;border:0;padding:.6rem 1.4rem;border-radius:6px}`
