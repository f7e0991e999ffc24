package llmcoach

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
	"github.com/blueberrycongee/llmcoach/pkg/provider"
)

// CoachConfig holds all configuration for a Coach.
type CoachConfig struct {
	// Model answers both calls of a turn. Required.
	Model provider.Model
	// Catalog lists the functions the model may request.
	Catalog *catalog.Catalog
	// Dispatcher executes requested functions. Nil selects preview mode.
	Dispatcher dispatch.Dispatcher
	// Extractor mines insights from each user message.
	Extractor *insight.Extractor

	// Stores
	Memories store.MemoryStore
	Progress store.ProgressReader
	Profiles store.ProfileStore

	// Context bounds
	MemoryLimit   int
	ProgressLimit int

	Persona     string
	TurnTimeout time.Duration

	Logger *slog.Logger
	Tracer trace.Tracer
	Now    func() time.Time
}

// Option configures a Coach.
type Option func(*CoachConfig)

func defaultConfig() CoachConfig {
	return CoachConfig{
		MemoryLimit:   store.DefaultMemoryLoadLimit,
		ProgressLimit: store.DefaultProgressLoadLimit,
		TurnTimeout:   60 * time.Second,
		Now:           time.Now,
	}
}

// WithModel sets the language model.
func WithModel(m provider.Model) Option {
	return func(c *CoachConfig) {
		c.Model = m
	}
}

// WithCatalog replaces the default coaching catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *CoachConfig) {
		c.Catalog = cat
	}
}

// WithDispatcher sets the function dispatcher. Without one the coach only
// previews requested calls.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(c *CoachConfig) {
		c.Dispatcher = d
	}
}

// WithExtractor replaces the built-in insight extractor.
func WithExtractor(e *insight.Extractor) Option {
	return func(c *CoachConfig) {
		c.Extractor = e
	}
}

// WithStore uses one store for memories, progress and profiles.
func WithStore(s store.Store) Option {
	return func(c *CoachConfig) {
		c.Memories = s
		c.Progress = s
		c.Profiles = s
	}
}

// WithMemoryStore sets the memory log store.
func WithMemoryStore(s store.MemoryStore) Option {
	return func(c *CoachConfig) {
		c.Memories = s
	}
}

// WithProgressStore sets the progress log reader.
func WithProgressStore(s store.ProgressReader) Option {
	return func(c *CoachConfig) {
		c.Progress = s
	}
}

// WithProfileStore sets the profile store.
func WithProfileStore(s store.ProfileStore) Option {
	return func(c *CoachConfig) {
		c.Profiles = s
	}
}

// WithLimits bounds how many memory records and progress entries are loaded
// per turn. Non-positive values keep the defaults.
func WithLimits(memories, progress int) Option {
	return func(c *CoachConfig) {
		if memories > 0 {
			c.MemoryLimit = memories
		}
		if progress > 0 {
			c.ProgressLimit = progress
		}
	}
}

// WithPersona replaces the coach persona in the system prompt.
func WithPersona(persona string) Option {
	return func(c *CoachConfig) {
		c.Persona = persona
	}
}

// WithTurnTimeout bounds a whole turn, both model calls included.
func WithTurnTimeout(d time.Duration) Option {
	return func(c *CoachConfig) {
		c.TurnTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CoachConfig) {
		c.Logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *CoachConfig) {
		c.Tracer = tracer
	}
}

// WithClock overrides the clock used for message timestamps and defaults.
func WithClock(now func() time.Time) Option {
	return func(c *CoachConfig) {
		if now != nil {
			c.Now = now
		}
	}
}
