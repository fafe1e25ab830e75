// Package fatal centralizes the engine's one unrecoverable-error
// channel: I/O failures, corrupt files, and programmer-error asserts
// all exit through a single logged call instead of scattering exit
// calls across call sites.
package fatal

import (
	"os"

	"go.uber.org/zap"
)

// Exit logs msg and fields at Error level and then terminates the
// process with status 1 by calling os.Exit directly, so the exit does
// not depend on which logger is wired in (tests construct pagers and
// engines with a nop logger).
func Exit(log *zap.Logger, msg string, fields ...zap.Field) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Error(msg, fields...)
	os.Exit(1)
}
