// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (text or JSON) when stdout is connected to something,
// and to the systemd journal when journald is reachable, through
// [github.com/coreos/go-systemd/v22/journal].
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"endpoint": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("endpoint")
//	logger.Info("Control socket bound", "path", path)
//
// Levels can be changed while running with [SetLevels]; existing loggers
// follow because each one is backed by a [slog.LevelVar].
//
// Journal entries carry the identifier "gpioled" and attributes as fields:
//
//	journalctl -t gpioled MODULE=endpoint
//	journalctl -t gpioled SESSION_ID=3
//
// TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	controller = "debug"
package logging
