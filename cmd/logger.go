package main

import (
	"io"
	"log/slog"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string, w io.Writer) *slog.Logger {
	var log *slog.Logger

	dropTime := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return a
	}

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       slog.LevelWarn,
			ReplaceAttr: dropTime,
		}))
	default:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       slog.LevelError,
			ReplaceAttr: dropTime,
		}))

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
