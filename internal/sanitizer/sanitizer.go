// Package sanitizer implements HiveMind's PII/secret scrubbing pipeline
// (spec §4.1). It is a process-wide singleton: detectors are compiled once
// at construction ("warm-up"), and Sanitise is safe for concurrent use,
// admission-controlled by a bounded semaphore the way the teacher bounds
// its agent-runtime inference queues.
package sanitizer

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
)

// Result is the output of Sanitise: the scrubbed string and its redaction ratio.
type Result struct {
	Sanitised string
	Ratio     float64
}

// Sanitiser is the process-wide singleton described in spec §4.1.
type Sanitiser struct {
	sem       *semaphore.Weighted
	detectors []detector
}

type detector struct {
	name        string
	pattern     *regexp.Regexp
	placeholder string
}

// New builds and warms up the Sanitiser. queueDepth bounds the number of
// concurrent Sanitise calls admitted before Sanitise returns a busy error
// (spec §5 backpressure).
func New(queueDepth int) *Sanitiser {
	return &Sanitiser{
		sem:       semaphore.NewWeighted(int64(queueDepth)),
		detectors: buildDetectors(),
	}
}

// buildDetectors compiles the layered detection patterns (spec §4.1):
// structured secrets first (highest confidence, most specific), then
// general PII, leaving a final catch-all for unmatched high-confidence
// spans to the caller via MarkUnknown (not modelled here because this
// corpus carries no trained NER component — see DESIGN.md).
func buildDetectors() []detector {
	return []detector{
		{"aws_access_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), "[API_KEY]"},
		{"generic_api_key_assignment", regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token)\s*[:=]\s*['"]?[A-Za-z0-9_\-/+]{16,}['"]?`), "[API_KEY]"},
		{"jwt", regexp.MustCompile(`\bey[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`), "[API_KEY]"},
		{"pem_block", regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`), "[API_KEY]"},
		{"conn_string_creds", regexp.MustCompile(`\b[a-z][a-z0-9+.\-]*://[^\s:@/]+:[^\s@/]+@[^\s]+`), "[PASSWORD]"},
		{"password_assignment", regexp.MustCompile(`(?i)\bpassword\s*[:=]\s*['"]?[^\s'"]{4,}['"]?`), "[PASSWORD]"},
		{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
		{"phone", regexp.MustCompile(`\b(\+?\d{1,2}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`), "[PHONE]"},
		{"credit_card", regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`), "[CREDIT_CARD]"},
		{"ip_address", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[IP_ADDRESS]"},
		{"person_name", regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`), "[NAME]"},
	}
}

// Sanitise replaces every detected sensitive span with its typed
// placeholder and returns the redaction ratio computed over the sanitised
// string's whitespace-split tokens (spec §4.1). It is idempotent: running
// Sanitise on already-sanitised output is a structural fixed point, since
// placeholders never match any detector pattern.
func (s *Sanitiser) Sanitise(ctx context.Context, input string) (Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Result{}, hmerrors.Busy("sanitiser inference queue saturated")
	}
	defer s.sem.Release(1)

	out := input
	placeholderCount := 0
	for _, d := range s.detectors {
		out, placeholderCount = replaceAll(out, d, placeholderCount)
	}

	tokens := strings.Fields(out)
	tokenCount := len(tokens)
	if tokenCount == 0 {
		tokenCount = 1
	}

	ratio := float64(placeholderCount) / float64(tokenCount)
	return Result{Sanitised: out, Ratio: ratio}, nil
}

func replaceAll(input string, d detector, placeholderCount int) (string, int) {
	count := placeholderCount
	out := d.pattern.ReplaceAllStringFunc(input, func(match string) string {
		count++
		return d.placeholder
	})
	return out, count
}
