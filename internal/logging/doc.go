// Package logging builds the service's slog logger from configuration,
// writing to stdout, stderr or a size-rotated log file.
package logging
