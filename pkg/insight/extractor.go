// Package insight mines user messages for durable facts using a declarative
// rule table. Extraction is pure string matching: it never reads model
// output and never touches the user profile.
package insight

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// UnknownContext is the context id recorded when none is supplied.
const UnknownContext = "unknown"

// Extractor runs a fixed rule table over messages. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	rules      []Rule
	now        func() time.Time
	logger     *slog.Logger
	confidence string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for ExtractedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLogger sets the logger used to report misbehaving rules.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithConfidence overrides the confidence attached to every record.
func WithConfidence(level string) Option {
	return func(e *Extractor) { e.confidence = level }
}

// probes is the self-test corpus every predicate must survive.
var probes = []string{
	"",
	" ",
	"I've been sleeping only 5 hours and feel exhausted",
	"Ünïcödé 睡眠 😴 évaluation",
	"\xff\xfe\xfd invalid utf-8",
	strings.Repeat("food and sleep ", 4096),
}

// New builds an Extractor over rules. Every predicate is run against a probe
// corpus first; a predicate that panics is reported as an extraction error
// so misconfigured tables fail at startup rather than at message time.
func New(rules []Rule, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		rules:      make([]Rule, 0, len(rules)),
		now:        time.Now,
		logger:     slog.Default(),
		confidence: types.ConfidenceHigh,
	}
	for _, opt := range opts {
		opt(e)
	}
	for i, r := range rules {
		if r.Predicate == nil {
			return nil, cerrors.NewConfigurationError(fmt.Sprintf("insight rule %d (%q) has no predicate", i, r.Category), nil)
		}
		if err := selfTest(r); err != nil {
			return nil, err
		}
		e.rules = append(e.rules, r)
	}
	return e, nil
}

// NewDefault builds an Extractor over DefaultRules.
func NewDefault(opts ...Option) *Extractor {
	e, err := New(DefaultRules(), opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func selfTest(r Rule) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = cerrors.NewExtractionError(r.Category, p)
		}
	}()
	for _, probe := range probes {
		r.Predicate(probe)
	}
	return nil
}

// Categories returns the rule categories in table order.
func (e *Extractor) Categories() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Category
	}
	return out
}

// Extract runs every rule over message and returns one record per matching
// rule, in table order. A message may match several categories.
func (e *Extractor) Extract(message string) []types.InsightRecord {
	return e.ExtractFor(message, UnknownContext)
}

// ExtractFor is Extract with an explicit context id.
func (e *Extractor) ExtractFor(message, contextID string) []types.InsightRecord {
	if strings.TrimSpace(message) == "" {
		return []types.InsightRecord{}
	}
	if contextID == "" {
		contextID = UnknownContext
	}
	at := e.now()
	out := make([]types.InsightRecord, 0, 2)
	for _, r := range e.rules {
		if !e.match(r, message) {
			continue
		}
		out = append(out, types.InsightRecord{
			Type:    r.Category,
			Content: message,
			Metadata: types.InsightMetadata{
				ExtractedAt: at,
				Confidence:  e.confidence,
				ContextID:   contextID,
			},
		})
	}
	return out
}

func (e *Extractor) match(r Rule, message string) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("insight rule panicked", "category", r.Category, "panic", p)
			ok = false
		}
	}()
	return r.Predicate(message)
}
