// Package matcher wraps the external YARA pattern-matching engine with
// the minimal, testable surface the pipeline needs: compile a set of
// rule sources once, then scan event content and get back flat matches.
package matcher

import (
	"context"
	"errors"
	"time"

	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

// ErrNoRules is returned when construction finds zero rule files (or is
// given zero rule sources) to compile.
var ErrNoRules = errors.New("matcher: no rules to compile")

// DefaultScanTimeout is the engine-enforced per-event scan timeout used
// when Config.ScanTimeout is zero.
const DefaultScanTimeout = 10 * time.Second

// Matcher scans content for rule matches.
type Matcher interface {
	// Scan runs the compiled rules against text and returns the
	// flattened matches. Empty-string fragments are never returned;
	// non-UTF-8 fragments are dropped with a warning, not an error.
	Scan(ctx context.Context, text string) ([]types.FlatMatch, error)

	// Close releases engine resources.
	Close() error
}

// Config configures matcher construction and scanning behavior.
type Config struct {
	// ScanTimeout bounds a single Scan call. Zero means DefaultScanTimeout.
	ScanTimeout time.Duration

	// Logger receives warnings about dropped, non-UTF-8 fragments.
	// A nil Logger is replaced with a no-op.
	Logger logging.Logger
}

// scanTimeout returns c.ScanTimeout, or DefaultScanTimeout if unset.
func (c Config) scanTimeout() time.Duration {
	if c.ScanTimeout <= 0 {
		return DefaultScanTimeout
	}
	return c.ScanTimeout
}
