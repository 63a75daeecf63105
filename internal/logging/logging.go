// Package logging sets up the process loggers: a slog fan-out for the
// application and zerolog adapters for the components that log through it.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the per-run log file path, e.g.
// logs/routecompare.20260212_213836.log.
func LogFilePath(logsDir, appName string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, runStart.Format("20060102_150405")),
	)
}
