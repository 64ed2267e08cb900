// Package pkg provides shared utilities for the softflash driver.
//
// This package contains common functionality used by the flash driver, its
// bus implementations and the host tooling:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for flash controller fault conditions
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentFlash, "page erased", "addr", "0x08004000")
//
// # Errors
//
// Controller faults are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrControllerTimeout) {
//	    // Report a device error to the host
//	}
package pkg
