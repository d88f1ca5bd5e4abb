// Package logging provides the structured logger for webthingd, a thin
// wrapper over log/slog configured from the logging section of the config.
package logging
