package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"

	"github.com/opsbook/opsbook/internal/constants"
)

// Initialize sets up the global slog logger based on the environment
func Initialize(env constants.Environment, level slog.Level) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, env, level))
	slog.SetDefault(logger)
	slog.Debug("logger initialized", "env", env, "level", level)

	return logger
}

// NewHandler returns a JSON handler for production and a colored tint
// handler everywhere else. Color follows the terminal detection of fatih/color.
func NewHandler(w io.Writer, env constants.Environment, level slog.Level) slog.Handler {
	if env == constants.Production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  time.TimeOnly,
		NoColor:     color.NoColor,
		ReplaceAttr: replaceAttrForDev,
	})
}

// replaceAttrForDev flattens map attributes into a single key=value string
// so they stay readable on one line.
func replaceAttrForDev(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	switch a.Value.Any().(type) {
	case map[string]any, map[string]string:
		return slog.String(a.Key, flattenMapAttr(a.Key, a.Value.Any()))
	default:
		return a
	}
}

// flattenMapAttr renders nested maps as sorted prefix.key=value pairs.
// Non-map values are formatted with fmt.
func flattenMapAttr(prefix string, value any) string {
	var pairs []string
	appendPair := func(key string, v any) {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v.(type) {
		case map[string]any, map[string]string:
			pairs = append(pairs, flattenMapAttr(full, v))
		default:
			pairs = append(pairs, fmt.Sprintf("%s=%v", full, v))
		}
	}

	switch m := value.(type) {
	case map[string]any:
		for k, v := range m {
			appendPair(k, v)
		}
	case map[string]string:
		for k, v := range m {
			appendPair(k, v)
		}
	default:
		return fmt.Sprint(value)
	}

	slices.Sort(pairs)
	return strings.Join(pairs, " ")
}
