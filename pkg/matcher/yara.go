package matcher

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	yara "github.com/hillu/go-yara/v4"

	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/rule"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

// yaraMatcher implements Matcher over a compiled *yara.Rules. One
// instance is built per processor worker (see pkg/pipeline); compiled
// YARA rule sets are not documented safe for concurrent Scan calls from
// independently-scheduled goroutines, so instances are never shared.
type yaraMatcher struct {
	rules   *yara.Rules
	timeout time.Duration
	logger  logging.Logger
}

// NewFromDir recursively discovers ".yar" files under dir and compiles
// them into a single matcher. Returns ErrNoRules if none are found.
func NewFromDir(dir string, cfg Config) (Matcher, error) {
	files, err := rule.DiscoverFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoRules
	}
	return NewFromFiles(files, cfg)
}

// NewFromFiles compiles the rule files at paths into a single matcher.
func NewFromFiles(paths []string, cfg Config) (Matcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoRules
	}
	sources, err := rule.ReadSources(paths)
	if err != nil {
		return nil, err
	}
	return NewFromRuleStrings(sources, cfg)
}

// NewFromRuleStrings compiles rules supplied as in-memory YARA source
// strings into a single matcher.
func NewFromRuleStrings(sources []string, cfg Config) (Matcher, error) {
	if len(sources) == 0 {
		return nil, ErrNoRules
	}

	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("matcher: creating compiler: %w", err)
	}

	for i, src := range sources {
		if err := compiler.AddString(src, "default"); err != nil {
			return nil, fmt.Errorf("matcher: compiling rule source %d: %w", i, err)
		}
	}

	rules, err := compiler.GetRules()
	if err != nil {
		return nil, fmt.Errorf("matcher: %w", err)
	}

	return &yaraMatcher{
		rules:   rules,
		timeout: cfg.scanTimeout(),
		logger:  logging.OrNoop(cfg.Logger),
	}, nil
}

// Scan implements Matcher.
func (m *yaraMatcher) Scan(ctx context.Context, text string) ([]types.FlatMatch, error) {
	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	var matches yara.MatchRules
	if err := m.rules.ScanMem([]byte(text), 0, timeout, &matches); err != nil {
		return nil, fmt.Errorf("matcher: scan: %w", err)
	}

	flat := make([]types.FlatMatch, 0, len(matches))
	for _, mr := range matches {
		flat = append(flat, m.flatten(mr))
	}
	return flat, nil
}

// flatten converts one engine-level rule match into a FlatMatch:
// namespace::identifier for the name, tags copied verbatim, and every
// matched string's occurrences flattened into a single fragment list.
// Zero-length matches contribute nothing; fragments that fail UTF-8
// decoding are dropped with a warning, and the rest of the match is
// still returned.
func (m *yaraMatcher) flatten(mr yara.MatchRule) types.FlatMatch {
	name := mr.Namespace + "::" + mr.Rule

	tags := make([]string, len(mr.Tags))
	copy(tags, mr.Tags)

	var fragments []string
	for _, s := range mr.Strings {
		if len(s.Data) == 0 {
			continue
		}
		if !utf8.Valid(s.Data) {
			m.logger.Log("matcher: dropping non-UTF-8 fragment for rule %s (string %q, %d bytes)", name, s.Name, len(s.Data))
			continue
		}
		fragments = append(fragments, string(s.Data))
	}

	return types.FlatMatch{
		RuleName:  name,
		Tags:      tags,
		Fragments: fragments,
	}
}

// Close implements Matcher.
func (m *yaraMatcher) Close() error {
	m.rules.Destroy()
	return nil
}
