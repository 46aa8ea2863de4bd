package report

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Style names a terminal rendering style.
type Style string

const (
	// StyleAuto picks dark or light from the terminal background.
	StyleAuto Style = "auto"
	// StyleDark is glamour's dark style.
	StyleDark Style = "dark"
	// StyleLight is glamour's light style.
	StyleLight Style = "light"
	// StyleNoTTY renders without colors.
	StyleNoTTY Style = "notty"
	// StylePlain leaves Markdown unrendered.
	StylePlain Style = "plain"
)

// DefaultWordWrap is used when NewRenderer gets a non-positive width.
const DefaultWordWrap = 100

// Renderer turns Markdown into terminal output.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer creates a renderer for style.
func NewRenderer(style Style, width int) (*Renderer, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}

	var styleOpt glamour.TermRendererOption
	switch style {
	case StylePlain:
		return &Renderer{}, nil
	case StyleAuto, "":
		styleOpt = glamour.WithAutoStyle()
	case StyleDark, StyleLight, StyleNoTTY:
		styleOpt = glamour.WithStandardStyle(string(style))
	default:
		return nil, fmt.Errorf("unknown report style %q", style)
	}

	term, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Renderer{term: term}, nil
}

// Render renders markdown. A plain renderer returns it unchanged.
func (r *Renderer) Render(markdown string) (string, error) {
	if r.term == nil {
		return markdown, nil
	}
	return r.term.Render(markdown)
}
