// Package output renders command results in the mode the user selected:
// styled text for terminals, markdown when piped, JSON or YAML for
// machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// Mode selects how command output is rendered.
type Mode string

const (
	// ModeAuto picks text on color-capable terminals and markdown when
	// piped.
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// Modes lists the selectable output modes, for flag completion and help.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeYAML)}
}

// Renderer writes command output in one mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	tty    *bool
	styles *Styles
}

// NewRenderer builds a renderer over the command's writers. Unknown or
// empty modes fall back to auto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return newRenderer(out, errOut, mode, nil)
}

// NewRendererWithTTY builds a renderer with an explicit terminal state
// instead of probing the environment. Intended for tests.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	return newRenderer(out, errOut, mode, &isTTY)
}

func newRenderer(out, errOut io.Writer, mode Mode, tty *bool) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON, ModeYAML:
	default:
		mode = ModeAuto
	}
	r := &Renderer{out: out, errOut: errOut, mode: mode, tty: tty}
	r.styles = newStyles(r.EffectiveMode() == ModeText)
	return r
}

// EffectiveMode resolves auto against the environment: text when stdout
// is a color-capable terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.tty != nil {
		if *r.tty {
			return ModeText
		}
		return ModeMarkdown
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return ModeMarkdown
	}
	return ModeText
}

// Writer returns the stream command results go to.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the stream warnings go to.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the style bundle matching the effective mode. Non-text
// modes get plain styles so piped output carries no escape codes.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line of output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Success writes a message behind the success mark.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.StatusSuccess.String() + " " + msg)
}

// StatusLine writes a name behind a pass or fail mark, with an optional
// muted detail.
func (r *Renderer) StatusLine(name, status, detail string) {
	mark := r.styles.StatusFailed.String()
	if status == "success" {
		mark = r.styles.StatusSuccess.String()
	}
	line := mark + " " + name
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

// Warning writes a styled warning to the error stream.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("Warning: "+msg))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
