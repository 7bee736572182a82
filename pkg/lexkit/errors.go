package lexkit

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholders substituted into custom error templates.
const (
	errLineMarker = "[[LINE]]"
	errTextMarker = "[[TEXT]]"
)

// LexError reports a stretch of input that no rule matched.
type LexError struct {
	Line int    // line where matching stopped, counted from 0
	Pos  int    // absolute position in the loaded text
	Text string // offending text, up to the next line break
	Msg  string // rendered custom message, empty for the default one
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("lexing error at line %d, pos %d: no rule matches %q", e.Line, e.Pos, e.Text)
}

// ErrorContext carries the failure details handed to custom error handlers
// and substituted into custom error templates.
type ErrorContext struct {
	Line int
	Pos  int
	Text string
}

// ErrorSpec customises how a matching failure is reported. It is either a
// message template or a handler callback, never both.
type ErrorSpec struct {
	template string
	handler  func(ErrorContext)
}

// ErrorTemplate builds an ErrorSpec that renders the given message on
// failure. The markers [[LINE]] and [[TEXT]] are replaced with the line
// number and the offending text.
func ErrorTemplate(template string) *ErrorSpec {
	return &ErrorSpec{template: template}
}

// ErrorHandler builds an ErrorSpec that invokes fn with the failure details.
// Evaluation still stops with a LexError after the handler returns.
func ErrorHandler(fn func(ErrorContext)) *ErrorSpec {
	return &ErrorSpec{handler: fn}
}

// render turns a failure into the error returned by the engine.
func (s *ErrorSpec) render(ctx ErrorContext) error {
	lexErr := &LexError{Line: ctx.Line, Pos: ctx.Pos, Text: ctx.Text}
	if s == nil {
		return lexErr
	}
	if s.handler != nil {
		s.handler(ctx)
		return lexErr
	}
	if s.template != "" {
		msg := strings.ReplaceAll(s.template, errLineMarker, strconv.Itoa(ctx.Line))
		msg = strings.ReplaceAll(msg, errTextMarker, ctx.Text)
		lexErr.Msg = msg
	}
	return lexErr
}
