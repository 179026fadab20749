// Package articulation turns raw generator output into a clean comment tree.
//
// A generator asked for a JSON array of comments does not always deliver
// one: the payload may be wrapped in a fenced code block, carry doubled
// escapes, or stop mid-object when the output-token ceiling is hit. The
// Sanitizer works through an ordered list of recovery attempts and either
// returns the parsed array with markup characters stripped from every string,
// or a RecoveryError. It never returns a partial result alongside an error.
package articulation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"synthfeed/internal/logging"
)

// RepairStrategy selects how the truncation repair finds its cut point.
type RepairStrategy string

const (
	// RepairDepth cuts after the last '}' that closes a top-level element.
	RepairDepth RepairStrategy = "depth"
	// RepairLastBrace cuts after the rightmost '}' anywhere in the text.
	//
	// Deprecated: may cut inside an open replies array. Use RepairDepth.
	RepairLastBrace RepairStrategy = "last_brace"
)

// ParseStrategy reports whether s names a known strategy.
func ParseStrategy(s string) (RepairStrategy, error) {
	switch RepairStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case RepairDepth, "":
		return RepairDepth, nil
	case RepairLastBrace:
		return RepairLastBrace, nil
	default:
		return "", fmt.Errorf("unknown repair strategy %q (use %q or %q)", s, RepairDepth, RepairLastBrace)
	}
}

// Method records which attempt produced a Result.
type Method string

const (
	MethodDirect        Method = "direct"
	MethodEscapedQuotes Method = "escaped_quotes"
	MethodTruncation    Method = "truncation"
)

var (
	// ErrUnrecoverable is wrapped by every sanitizer failure.
	ErrUnrecoverable = errors.New("unrecoverable generator response")

	ErrNoOpeningBracket = fmt.Errorf("%w: no opening bracket", ErrUnrecoverable)
	ErrNoClosingBrace   = fmt.Errorf("%w: no closing brace found", ErrUnrecoverable)
	ErrRepairFailed     = fmt.Errorf("%w: final repair parse failed", ErrUnrecoverable)
)

// RecoveryError describes why a response could not be salvaged.
type RecoveryError struct {
	// Stage is one of ErrNoOpeningBracket, ErrNoClosingBrace, ErrRepairFailed.
	Stage error
	// Cleaned is the input after fence stripping.
	Cleaned string
	// Repaired is the text of the final repair attempt, if one was made.
	Repaired string
	// Cause is the last parse error, if any.
	Cause error
}

func (e *RecoveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Stage, e.Cause)
	}
	return e.Stage.Error()
}

func (e *RecoveryError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Stage, e.Cause}
	}
	return []error{e.Stage}
}

// Result is a successfully recovered comment array.
type Result struct {
	// Tree is the sanitized top-level array.
	Tree Array
	// Method is the attempt that succeeded.
	Method Method
	// Cleaned is the input after fence stripping.
	Cleaned string
	// Repaired is the text that finally parsed when Method is truncation.
	Repaired string
	// Discarded is the tail dropped by truncation repair.
	Discarded string
}

// Stats counts sanitizer outcomes.
type Stats struct {
	Processed int
	Direct    int
	Repaired  int
	Failed    int
}

// Sanitizer recovers comment arrays from raw generator text.
// It is safe for concurrent use.
type Sanitizer struct {
	strategy RepairStrategy

	mu    sync.Mutex
	stats Stats
}

// NewSanitizer creates a Sanitizer using the given truncation strategy.
func NewSanitizer(strategy RepairStrategy) *Sanitizer {
	if strategy == "" {
		strategy = RepairDepth
	}
	if strategy == RepairLastBrace {
		logging.ArticulationWarn("repair strategy %q is deprecated, prefer %q", RepairLastBrace, RepairDepth)
	}
	return &Sanitizer{strategy: strategy}
}

// Recover runs the default depth-aware Sanitizer over text.
func Recover(text string) (*Result, error) {
	return NewSanitizer(RepairDepth).Recover(text)
}

// Recover converts raw generator text into a sanitized comment array.
//
// Attempts, first success wins: direct parse, escaped-quote repair,
// truncation repair. On failure the returned error is a *RecoveryError
// wrapping ErrUnrecoverable and the Result is nil.
func (s *Sanitizer) Recover(text string) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryArticulation, "Recover")
	defer timer.Stop()

	s.count(func(st *Stats) { st.Processed++ })

	cleaned := StripFences(text)

	// 1. Direct parse
	tree, err := parseArray(cleaned)
	if err == nil {
		s.count(func(st *Stats) { st.Direct++ })
		return s.success(tree, MethodDirect, cleaned, "", ""), nil
	}
	logging.ArticulationDebug("direct parse failed: %v", err)

	// 2. Doubled escapes around quotes
	if unescaped := strings.ReplaceAll(cleaned, `\"`, `"`); unescaped != cleaned {
		tree, err = parseArray(unescaped)
		if err == nil {
			s.count(func(st *Stats) { st.Repaired++ })
			return s.success(tree, MethodEscapedQuotes, cleaned, unescaped, ""), nil
		}
		logging.ArticulationDebug("escaped-quote repair failed: %v", err)
	}

	// 3. Truncation
	if !strings.HasPrefix(cleaned, "[") {
		return nil, s.fail(&RecoveryError{Stage: ErrNoOpeningBracket, Cleaned: cleaned, Cause: err})
	}

	cut := s.cutPoint(cleaned)
	if cut < 0 {
		return nil, s.fail(&RecoveryError{Stage: ErrNoClosingBrace, Cleaned: cleaned, Cause: err})
	}

	repaired := cleaned[:cut+1] + "\n]"
	tree, err = parseArray(repaired)
	if err != nil {
		return nil, s.fail(&RecoveryError{Stage: ErrRepairFailed, Cleaned: cleaned, Repaired: repaired, Cause: err})
	}

	s.count(func(st *Stats) { st.Repaired++ })
	return s.success(tree, MethodTruncation, cleaned, repaired, cleaned[cut+1:]), nil
}

// Stats returns a snapshot of the outcome counters.
func (s *Sanitizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Strategy returns the configured truncation strategy.
func (s *Sanitizer) Strategy() RepairStrategy {
	return s.strategy
}

func (s *Sanitizer) cutPoint(text string) int {
	if s.strategy == RepairLastBrace {
		return FindLastBrace(text)
	}
	return FindSafeCut(text)
}

func (s *Sanitizer) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

func (s *Sanitizer) success(tree Array, method Method, cleaned, repaired, discarded string) *Result {
	sanitized := Sanitize(tree).(Array)
	switch method {
	case MethodDirect:
		logging.ArticulationDebug("parsed %d top-level comments directly", len(sanitized))
	case MethodTruncation:
		logging.ArticulationWarn("salvaged %d top-level comments from truncated response, discarded %d bytes",
			len(sanitized), len(discarded))
		logging.ArticulationDebug("discarded tail: %s", discarded)
	default:
		logging.ArticulationWarn("recovered %d top-level comments via %s", len(sanitized), method)
	}
	return &Result{
		Tree:      sanitized,
		Method:    method,
		Cleaned:   cleaned,
		Repaired:  repaired,
		Discarded: discarded,
	}
}

func (s *Sanitizer) fail(err *RecoveryError) error {
	s.count(func(st *Stats) { st.Failed++ })
	logging.ArticulationError("%v; response preview: %s", err, preview(err.Cleaned, 400))
	logging.ArticulationDebug("unrecoverable response text: %s", err.Cleaned)
	if err.Repaired != "" {
		logging.ArticulationDebug("attempted repair text: %s", err.Repaired)
	}
	return err
}

// StripFences removes a leading "```json" or "```" fence and, when present,
// the trailing "```". Unfenced text is only trimmed.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case len(s) >= 7 && strings.EqualFold(s[:7], "```json"):
		s = s[7:]
	case strings.HasPrefix(s, "```"):
		s = s[3:]
	default:
		return s
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseArray parses text and requires the top-level value to be an array.
func parseArray(text string) (Array, error) {
	node, err := Parse(text)
	if err != nil {
		return nil, err
	}
	arr, ok := node.(Array)
	if !ok {
		return nil, fmt.Errorf("top-level value is %T, not an array", node)
	}
	return arr, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[TRUNCATED]"
}
