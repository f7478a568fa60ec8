package log

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
)

const redacted = "[redacted]"

type JSONHandlerOptions struct {
	slog.HandlerOptions
	PrettyPrint bool
	// Redact lists attribute keys whose values never reach the output, at any group depth.
	Redact []string
}

// NewJSONHandler returns a [slog.JSONHandler] that redacts secrets like cluster passwords and
// optionally indents every record.
func NewJSONHandler(w io.Writer, opts *JSONHandlerOptions) slog.Handler {
	if opts == nil {
		opts = &JSONHandlerOptions{}
	}

	handlerOptions := opts.HandlerOptions
	handlerOptions.ReplaceAttr = redact(opts.Redact, opts.ReplaceAttr)

	if opts.PrettyPrint {
		w = indentWriter{w}
	}
	return slog.NewJSONHandler(w, &handlerOptions)
}

func redact(keys []string, next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	if len(keys) == 0 {
		return next
	}

	return func(groups []string, a slog.Attr) slog.Attr {
		if slices.Contains(keys, a.Key) {
			a.Value = slog.StringValue(redacted)
		}
		if next != nil {
			return next(groups, a)
		}
		return a
	}
}

// indentWriter relies on slog.JSONHandler writing each record using a single Write.
type indentWriter struct {
	w io.Writer
}

func (i indentWriter) Write(p []byte) (int, error) {
	var indented bytes.Buffer
	if err := json.Indent(&indented, p, "", "  "); err != nil {
		return 0, err
	}
	if _, err := i.w.Write(indented.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
