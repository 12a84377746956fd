package aca

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE - One tax year's rules plus execution settings
// =============================================================================

// Engine evaluates employees against one tax year's constants. It holds no
// mutable state after construction and is safe for concurrent use.
type Engine struct {
	constants YearConstants
	fteRules  []fteRule
	logger    zerolog.Logger
	workers   int
	chunkSize int
	recorder  Recorder
	progress  func(done, total int)
}

// Recorder receives run statistics. metrics.Metrics implements it.
type Recorder interface {
	RecordAssessment(taxYear int, status ComplianceStatus)
	RecordFailure(taxYear int, stage Stage)
	RecordBatch(taxYear int, records int, exposure decimal.Decimal, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordAssessment(int, ComplianceStatus) {}
func (nopRecorder) RecordFailure(int, Stage) {}
func (nopRecorder) RecordBatch(int, int, decimal.Decimal, time.Duration) {}

// DefaultChunkSize bounds how many records are in flight at once.
const DefaultChunkSize = 500

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWorkers sets the number of parallel workers per chunk.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithChunkSize sets the number of records processed per chunk.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithRecorder attaches a statistics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithProgress registers a callback invoked after every chunk.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine builds an engine for one tax year. The constants are copied;
// later changes to a Registry do not affect this engine.
func NewEngine(c YearConstants, opts ...Option) *Engine {
	e := &Engine{
		constants: c,
		fteRules:  fteRules,
		logger:    zerolog.Nop(),
		workers:   runtime.GOMAXPROCS(0),
		chunkSize: DefaultChunkSize,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Constants returns the tax-year table this engine runs with.
func (e *Engine) Constants() YearConstants {
	return e.constants
}

// TaxYear returns the engine's tax year.
func (e *Engine) TaxYear() int {
	return e.constants.TaxYear
}
