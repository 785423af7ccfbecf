package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// defaultKeyOrder pins well-known keys to the front of every line so logs
// stay grep-friendly; unknown keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"state",
	"donor_id",
	"blood_group",
	"city",
	"count",
	"mode",
	"listen",
	"public_url",
	"path",
	"reason",
	"sent",
	"failed",
	"attempts",
	"duration",
	"duration_ms",
	"err",
	"err_code",
}

type handlerConfig struct {
	level  slog.Leveler
	out    io.Writer
	format logFormat
}

// structuredHandler renders records with a fixed key order in either
// key=value or JSON form.
type structuredHandler struct {
	cfg   handlerConfig
	attrs []slog.Attr
	mu    *sync.Mutex
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	return &structuredHandler{cfg: cfg, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler allows processing the provided level.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle formats the slog.Record and writes it as one line.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, 16)
	fields["ts"] = r.Time.UTC().Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = strings.ToUpper(r.Level.String())

	for _, a := range h.attrs {
		collectAttr(fields, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collectAttr(fields, a)
		return true
	})
	if r.Message != "" {
		if _, ok := fields["event"]; !ok {
			fields["event"] = r.Message
		}
	}
	enrichFromContext(ctx, fields)

	line := h.render(fields)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.cfg.out, line+"\n")
	return err
}

// WithAttrs returns a handler carrying the additional attributes.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup flattens groups; grouped keys are rare enough here that the
// prefix form keeps the fixed ordering intact.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), slog.String("group", name))
	return &clone
}

func collectAttr(fields map[string]any, a slog.Attr) {
	if a.Key == "" {
		return
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		fields[a.Key] = RoundMS(v.Duration()).String()
	case slog.KindTime:
		fields[a.Key] = v.Time().UTC().Format(timeFormatMillis)
	case slog.KindGroup:
		for _, ga := range v.Group() {
			ga.Key = a.Key + "." + ga.Key
			collectAttr(fields, ga)
		}
	default:
		fields[a.Key] = v.Any()
	}
}

func enrichFromContext(ctx context.Context, fields map[string]any) {
	if rid := RIDFrom(ctx); rid != "" {
		fields["rid"] = rid
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		fields["update_id"] = id
	}
	if id := UserIDFrom(ctx); id != 0 {
		fields["user_id"] = id
	}
	if id := ChatIDFrom(ctx); id != 0 {
		fields["chat_id"] = id
	}
	if h := HandlerFrom(ctx); h != "" {
		fields["handler"] = h
	}
}

func orderedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, k := range defaultKeyOrder {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (h *structuredHandler) render(fields map[string]any) string {
	keys := orderedKeys(fields)
	var b strings.Builder

	if h.cfg.format == formatJSON {
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			valJSON, err := json.Marshal(fields[k])
			if err != nil {
				valJSON, _ = json.Marshal(fmt.Sprint(fields[k]))
			}
			b.Write(keyJSON)
			b.WriteByte(':')
			b.Write(valJSON)
		}
		b.WriteByte('}')
		return b.String()
	}

	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(fields[k]))
	}
	return b.String()
}

func kvValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		quoted, _ := json.Marshal(s)
		return string(quoted)
	}
	return s
}
