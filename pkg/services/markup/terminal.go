package markup

import (
	"github.com/charmbracelet/glamour"
)

// Terminal renders Markdown with ANSI styles
type Terminal struct {
	tr *glamour.TermRenderer
}

var _ Renderer = (*Terminal)(nil)

// NewTerminal picks the style from the terminal background. style may name a
// glamour style ("dark", "light", "notty"), empty for auto.
func NewTerminal(style string, width int) (*Terminal, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if len(style) > 0 {
		styleOpt = glamour.WithStylePath(style)
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	return &Terminal{tr: tr}, nil
}

func (t *Terminal) Render(text string) (string, error) {
	return t.tr.Render(text)
}
