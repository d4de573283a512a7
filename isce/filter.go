package isce

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/sarlab/insar-analyzer/service"
)

// phase display names, keyed by the topsApp step marker printed on stdout.
// Probed in order, first match wins.
var phaseMarkers = []struct {
	marker string
	phase  string
}{
	{"runPreprocessor", "Preprocessing"},
	{"runComputeBaseline", "Computing baselines"},
	{"runTopo", "Topo"},
	{"runSubsetOverlaps", "Subsetting overlaps"},
	{"runCoarseOffsets", "Coarse offsets"},
	{"runBurstIfg", "Burst interferograms"},
	{"runMergeBursts", "Merging bursts"},
	{"runFilter", "Filtering"},
	{"runUnwrap", "Unwrapping"},
	{"runGeocode", "Geocoding"},
}

// TopsAppLogFilter classifies topsApp.py output: step markers become the
// current processing phase, error lines are kept for failure reporting.
type TopsAppLogFilter struct {
	phase     string
	lastError string
}

// Phase returns the latest processing phase seen on stdout.
func (f *TopsAppLogFilter) Phase() string {
	return f.phase
}

// Filter implements log.Filter
func (f *TopsAppLogFilter) Filter(msg string, defaultLevel zapcore.Level) (string, zapcore.Level, bool) {
	trimmedmsg := strings.TrimSpace(msg)
	for _, m := range phaseMarkers {
		if strings.Contains(trimmedmsg, m.marker) {
			f.phase = m.phase
			return msg, zapcore.InfoLevel, false
		}
	}
	if strings.HasPrefix(trimmedmsg, "Traceback") ||
		strings.HasPrefix(trimmedmsg, "ERROR") ||
		strings.Contains(trimmedmsg, "Exception:") ||
		strings.HasPrefix(trimmedmsg, "RuntimeError") {
		f.lastError = trimmedmsg
		return msg, zapcore.ErrorLevel, false
	}
	return msg, defaultLevel, false
}

// WrapError enriches an exec error with the last error line and the phase
// it happened in.
func (f *TopsAppLogFilter) WrapError(err error) error {
	if err == nil {
		return nil
	}
	if f.phase != "" {
		err = fmt.Errorf("%s: %w", f.phase, err)
	}
	if f.lastError != "" {
		err = service.MergeErrors(true, err, fmt.Errorf("%s", f.lastError))
		strerr := strings.ToLower(err.Error())
		for _, tmp := range []string{"temporary failure", "timed out", "connection reset"} {
			if strings.Contains(strerr, tmp) {
				return service.MakeTemporary(err)
			}
		}
	}
	return err
}
