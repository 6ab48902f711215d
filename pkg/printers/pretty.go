package printers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/journey/pkg/record"
)

type PrettyPrint struct {
	ShowID bool
	// Out defaults to color.Output.
	Out io.Writer
}

var (
	// ids are 32 hex characters.
	spacing = strings.Repeat(" ", 34)
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int, one, many string) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprint(pp.out(), title)
	noun := many
	if count == 1 {
		noun = one
	}
	_, _ = c.Fprintf(pp.out(), " - %d %s\n", count, noun)
}

func (pp *PrettyPrint) none(what string) {
	f := color.New(color.Faint, color.Italic)
	if pp.ShowID {
		_, _ = f.Fprint(pp.out(), spacing)
	}
	_, _ = f.Fprintf(pp.out(), " %s\n\n", what)
}

func (pp *PrettyPrint) id(id string) {
	if !pp.ShowID {
		return
	}
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	_, _ = y.Fprint(pp.out(), id)
	if pad := len(spacing) - len(id); pad > 0 {
		_, _ = y.Fprint(pp.out(), strings.Repeat(" ", pad))
	} else {
		_, _ = y.Fprint(pp.out(), " ")
	}
}

// GlyphColor paints a moment glyph in its 256 colour.
func GlyphColor(g record.Glyph) *color.Color {
	code, err := strconv.Atoi(g.Color)
	if err != nil {
		return color.New()
	}
	return color.New(38, 5, color.Attribute(code))
}

func (pp *PrettyPrint) Moments(moments ...record.Moment) {
	if len(moments) == 0 {
		pp.none("no moments yet")
		return
	}

	faint := color.New(color.Faint)
	bold := color.New(color.Bold)
	for _, m := range moments {
		pp.id(m.ID)
		g := m.Glyph()
		_, _ = GlyphColor(g).Fprint(pp.out(), g.Symbol)
		_, _ = bold.Fprintf(pp.out(), " %s", m.Title)
		_, _ = faint.Fprintf(pp.out(), "  %s · %s\n", m.CreatedAt.Short(), byName(m.CreatorName))
		if d := strings.TrimSpace(m.Description); d != "" {
			pp.indent(d)
		}
	}
	pp.NewLine()
}

func (pp *PrettyPrint) Journal(entries ...record.JournalEntry) {
	if len(entries) == 0 {
		pp.none("the journal is empty")
		return
	}

	faint := color.New(color.Faint)
	for _, e := range entries {
		pp.id(e.ID)
		_, _ = faint.Fprintf(pp.out(), "%s · %s\n", e.CreatedAt.Short(), byName(e.CreatorName))
		pp.indent(e.Text)
	}
	pp.NewLine()
}

func (pp *PrettyPrint) Purpose(p record.Purpose) {
	if strings.TrimSpace(p.Text) == "" {
		pp.none("no purpose written yet")
		return
	}
	pp.indent(p.Text)
	if !p.LastUpdatedAt.IsZero() {
		_, _ = color.New(color.Faint).Fprintf(pp.out(), "  updated %s\n", p.LastUpdatedAt.Short())
	}
	pp.NewLine()
}

func (pp *PrettyPrint) indent(text string) {
	for _, line := range strings.Split(text, "\n") {
		if pp.ShowID {
			_, _ = fmt.Fprint(pp.out(), spacing)
		}
		_, _ = fmt.Fprintf(pp.out(), "  %s\n", line)
	}
}

func byName(name string) string {
	if strings.TrimSpace(name) == "" {
		return record.AnonymousName
	}
	return name
}

// Key renders the moment type legend.
func (pp *PrettyPrint) Key() {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Type"), bold.Sprint("Meaning"))
	for _, t := range record.MomentTypes() {
		g := t.Glyph()
		tbl.AddRow(GlyphColor(g).Sprint(g.Symbol), g.Meaning)
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(pp.out(), tbl)
}
