package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/definition"
	"mercator-hq/conditional/pkg/journal"
	"mercator-hq/conditional/pkg/runner"
	"mercator-hq/conditional/pkg/telemetry/logging"
)

// RunRecorder receives one call per evaluation. *metrics.Collector
// implements it.
type RunRecorder interface {
	RecordRun(definition, result string, duration time.Duration)
}

// Request parameterizes an evaluation.
type Request struct {
	// State is merged over the definition's seed state.
	State map[string]any `json:"state,omitempty"`

	// Mode overrides the configured engine mode.
	Mode string `json:"mode,omitempty"`
}

// Result describes a finished evaluation.
type Result struct {
	RunID      string          `json:"run_id"`
	Definition string          `json:"definition"`
	Condition  string          `json:"condition"`
	Mode       Mode            `json:"mode"`
	Value      bool            `json:"value"`
	Result     journal.Result  `json:"result"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
	Events     []journal.Event `json:"events,omitempty"`

	// Err is the error returned by the evaluation, if any.
	Err error `json:"-"`
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry sets the predicate registry. Default: definition.NewRegistry().
func WithRegistry(registry *definition.Registry) Option {
	return func(s *Service) { s.registry = registry }
}

// WithRunners sets the named runners instead of building pools from
// configuration.
func WithRunners(runners *runner.Registry) Option {
	return func(s *Service) { s.runners = runners }
}

// WithStore journals runs to store.
func WithStore(store journal.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithObserver attaches an observer to every RunContext.
func WithObserver(observer condition.Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, observer) }
}

// WithRunRecorder records run outcomes, typically into metrics.
func WithRunRecorder(recorder RunRecorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

// WithPoolObserver observes the pools built from configuration.
func WithPoolObserver(observer runner.PoolObserver) Option {
	return func(s *Service) { s.poolObserver = observer }
}

// WithDocument uses doc instead of loading the configured definitions file.
// Reload rebuilds from the same document.
func WithDocument(doc *definition.Document) Option {
	return func(s *Service) { s.document = doc }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service evaluates definitions.
type Service struct {
	config       *config.Config
	registry     *definition.Registry
	runners      *runner.Registry
	ownRunners   bool
	store        journal.Store
	observers    []condition.Observer
	recorder     RunRecorder
	poolObserver runner.PoolObserver
	document     *definition.Document
	logger       *slog.Logger

	mu  sync.RWMutex
	set *definition.Set
}

// New creates a service and builds its definitions.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if _, err := ParseMode(cfg.Engine.Mode); err != nil {
		return nil, err
	}

	s := &Service{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "service")
	if s.registry == nil {
		s.registry = definition.NewRegistry()
	}
	if s.runners == nil {
		runners, err := buildRunners(cfg.Engine.Runners, s.poolObserver, s.logger)
		if err != nil {
			return nil, err
		}
		s.runners = runners
		s.ownRunners = true
	}

	if err := s.Reload(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func buildRunners(cfgs map[string]config.RunnerConfig, observer runner.PoolObserver, logger *slog.Logger) (*runner.Registry, error) {
	runners := runner.NewRegistry()
	for name, rc := range cfgs {
		opts := []runner.PoolOption{runner.WithPoolLogger(logger)}
		if observer != nil {
			opts = append(opts, runner.WithPoolObserver(observer))
		}
		pool := runner.NewPool(runner.PoolConfig{Name: name, Workers: rc.Workers, QueueSize: rc.QueueSize}, opts...)
		if err := runners.Register(name, pool); err != nil {
			pool.Close()
			runners.Close()
			return nil, err
		}
	}
	return runners, nil
}

// Reload rebuilds the definition set. On failure the previous set stays
// active.
func (s *Service) Reload() error {
	doc := s.document
	if doc == nil {
		loaded, err := definition.Load(s.config.Definitions.Path)
		if err != nil {
			return err
		}
		doc = loaded
	}

	set, err := definition.Build(doc, s.registry, s.runners)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.set = set
	s.mu.Unlock()

	s.logger.Info("definitions loaded", "count", len(set.Names()))
	return nil
}

// Names returns the definition names in declaration order.
func (s *Service) Names() []string {
	return s.current().Names()
}

// Describe returns the rendered tree and description of a definition.
func (s *Service) Describe(name string) (rendered, description string, err error) {
	set := s.current()
	c, err := set.Get(name)
	if err != nil {
		return "", "", err
	}
	return c.String(), set.Description(name), nil
}

func (s *Service) current() *definition.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Evaluate runs the named definition. The returned error reports request
// problems only: an unknown definition or mode. Evaluation failures are
// carried in the Result.
func (s *Service) Evaluate(ctx context.Context, name string, req Request) (*Result, error) {
	set := s.current()
	tree, err := set.Get(name)
	if err != nil {
		return nil, err
	}

	modeName := req.Mode
	if modeName == "" {
		modeName = s.config.Engine.Mode
	}
	mode, err := ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	state := set.State()
	maps.Copy(state, req.State)

	opts := []condition.RunOption{
		condition.WithState(state),
		condition.WithLogger(s.logger),
	}
	for _, observer := range s.observers {
		opts = append(opts, condition.WithObserver(observer))
	}
	rc := condition.NewRunContext(opts...)

	evalCtx := logging.WithCondition(logging.WithRunID(ctx, rc.ID()), name)
	if s.config.Engine.Timeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(evalCtx, s.config.Engine.Timeout)
		defer cancel()
	}

	start := time.Now()
	value, evalErr := condition.Evaluate(evalCtx, mode.apply(tree), rc)
	elapsed := time.Since(start)

	s.settle(ctx, rc)

	run := journal.FromRunContext(name, string(mode), rc, value, evalErr)
	if run.Duration == 0 {
		run.Duration = elapsed
	}
	if s.store != nil {
		if err := s.store.Save(ctx, run); err != nil {
			s.logger.Error("failed to journal run", "run_id", run.ID, "error", err)
		}
	}
	if s.recorder != nil {
		s.recorder.RecordRun(name, string(run.Result), run.Duration)
	}

	s.logger.Info("evaluation finished",
		"run_id", run.ID,
		"definition", name,
		"mode", mode,
		"result", run.Result,
		"duration_ms", run.Duration.Milliseconds(),
	)

	return &Result{
		RunID:      run.ID,
		Definition: name,
		Condition:  run.Condition,
		Mode:       mode,
		Value:      run.Value,
		Result:     run.Result,
		Error:      run.Error,
		Duration:   run.Duration,
		Events:     run.Events,
		Err:        evalErr,
	}, nil
}

// settle waits for abandoned branches so the journal sees every finished
// entry.
func (s *Service) settle(ctx context.Context, rc *condition.RunContext) {
	timeout := s.config.Engine.SettleTimeout
	if timeout <= 0 {
		return
	}
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := rc.Wait(settleCtx); err != nil {
		s.logger.Warn("cancelled branches still running at journal time",
			"run_id", rc.ID(),
			"settle_timeout", timeout,
		)
	}
}

// Run returns a journaled run.
func (s *Service) Run(ctx context.Context, id string) (*journal.Run, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	return s.store.Get(ctx, id)
}

// Runs queries journaled runs.
func (s *Service) Runs(ctx context.Context, filter journal.Filter) ([]*journal.Run, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	return s.store.Query(ctx, filter)
}

// ErrJournalDisabled is returned by run queries without a store.
var ErrJournalDisabled = errors.New("journal is disabled")

// Close stops the pools the service created. The store is owned by the
// caller.
func (s *Service) Close() error {
	if !s.ownRunners || s.runners == nil {
		return nil
	}
	if err := s.runners.Close(); err != nil {
		return fmt.Errorf("close runners: %w", err)
	}
	return nil
}
