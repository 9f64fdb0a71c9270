package web

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/a-h/templ"
	"github.com/pbaille/journal/internal/domain"
	"github.com/pbaille/journal/internal/thoughts"
)

// pageWriter writes markup and keeps the first error.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) rawf(format string, args ...any) {
	p.raw(fmt.Sprintf(format, args...))
}

func (p *pageWriter) component(ctx context.Context, c templ.Component) {
	if p.err != nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title)
		p.raw(`</title><link rel="stylesheet" href="/static/journal.css"></head><body><main>`)
		p.component(ctx, body)
		p.raw(`</main></body></html>`)
		return p.err
	})
}

// ThoughtsPage lists every thought with its Edit and Delete actions.
func ThoughtsPage(list *thoughts.List, notices []string) templ.Component {
	return layout("All My Thoughts", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<div class="card"><h2 class="title">All My Thoughts</h2>`)
		for _, notice := range notices {
			p.raw(`<p class="notice" role="alert">`)
			p.text(notice)
			p.raw(`</p>`)
		}
		p.raw(`<div class="thoughts">`)
		if list.Empty() {
			p.raw(`<p class="placeholder">`)
			p.text(thoughts.EmptyPlaceholder)
			p.raw(`</p>`)
		}
		for i, t := range list.Thoughts {
			p.component(ctx, thoughtRow(list, i, t))
		}
		p.raw(`</div></div>`)
		return p.err
	}))
}

func thoughtRow(list *thoughts.List, index int, t thoughts.DisplayThought) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.rawf(`<div class="thought" data-index="%d" data-id="%d">`, index, t.ID)
		p.raw(`<div class="row"><p class="text">`)
		p.text(t.Text)
		p.raw(`</p><div class="actions">`)
		p.rawf(`<a class="button edit" href="/thoughts/%d/edit">Edit</a>`, t.ID)
		p.rawf(`<form method="post" action="/thoughts/%d/delete">`, t.ID)
		p.rawf(`<input type="hidden" name="target" value="%d">`, index)
		p.raw(`<button class="button delete" type="submit">Delete</button></form>`)
		p.raw(`</div></div><p class="time">`)
		p.text(t.Time)
		p.raw(`</p>`)
		if len(t.Competencies) > 0 {
			p.raw(`<p class="competencies"><strong>Competencies: </strong>`)
			p.text(list.CompetencyLine(t))
			p.raw(`</p>`)
		}
		p.raw(`</div>`)
		return p.err
	})
}

// EditPage is the form for rewriting one thought.
func EditPage(entry *domain.Entry, catalog []domain.Competency, notice string) templ.Component {
	return layout("Edit thought", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<div class="card"><h2 class="title">Edit thought</h2>`)
		if notice != "" {
			p.raw(`<p class="notice" role="alert">`)
			p.text(notice)
			p.raw(`</p>`)
		}
		p.rawf(`<form method="post" action="/thoughts/%d/edit">`, entry.ID)
		p.raw(`<textarea name="text" rows="4" required>`)
		p.text(entry.Text)
		p.raw(`</textarea><fieldset><legend>Competencies</legend>`)
		for _, c := range catalog {
			checked := ""
			if slices.Contains(entry.Competencies, c.ID) {
				checked = " checked"
			}
			p.rawf(`<label title="%s"><input type="checkbox" name="competency" value="%d"%s> `,
				templ.EscapeString(c.Description), c.ID, checked)
			p.text(c.Skill)
			p.raw(`</label>`)
		}
		p.raw(`</fieldset><button class="button save" type="submit">Save</button>`)
		p.raw(`<a class="button cancel" href="/thoughts">Cancel</a></form></div>`)
		return p.err
	}))
}
