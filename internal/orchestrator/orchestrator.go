// Package orchestrator runs the pipeline stages in order as independent processes, stopping at
// the first stage that fails.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/logger"
	"github.com/tphakala/birddeck/internal/observability/metrics"
)

// Stage names, which are also the subcommands that run them
const (
	StageDiscover = "discover"
	StageFetch    = "fetch"
	StageMedia    = "media"
	StageDeck     = "deck"
)

// DefaultStages is the full pipeline in execution order
var DefaultStages = []string{StageDiscover, StageFetch, StageMedia, StageDeck}

// Executor runs one stage to completion
type Executor interface {
	Run(ctx context.Context, stage string) error
}

// StageError reports the stage that stopped the run and its exit code
type StageError struct {
	Stage    string
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (exit code %d): %v", e.Stage, e.ExitCode, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrorCategory classifies stage failures as command execution errors
func (e *StageError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryCommandExecution
}

// Runner executes stages in order
type Runner struct {
	exec    Executor
	stages  []string
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// New creates a Runner for stages. m may be nil.
func New(exec Executor, stages []string, log logger.Logger, m *metrics.PipelineMetrics) *Runner {
	if log == nil {
		log = logger.Global().Module("orchestrator")
	}
	return &Runner{exec: exec, stages: stages, log: log, metrics: m}
}

// Run executes every stage in order. The first failure stops the run and is returned as a
// *StageError; later stages are not started.
func (r *Runner) Run(ctx context.Context) error {
	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return errors.New(err).
				Component("orchestrator").
				Category(errors.CategoryCancellation).
				Context("next_stage", stage).
				Build()
		}

		r.log.Info("Running stage",
			logger.String("stage", stage),
			logger.Int("step", i+1),
			logger.Int("steps", len(r.stages)))

		start := time.Now()
		err := r.exec.Run(ctx, stage)
		r.metrics.StageFinished(stage, time.Since(start), err)
		if err != nil {
			stageErr := &StageError{Stage: stage, ExitCode: exitCode(err), Err: err}
			r.log.Error("Stage failed, stopping",
				logger.String("stage", stage),
				logger.Int("exit_code", stageErr.ExitCode),
				logger.Error(err))
			return stageErr
		}

		r.log.Info("Stage completed",
			logger.String("stage", stage),
			logger.Duration("elapsed", time.Since(start)))
	}

	r.log.Info("All stages completed successfully", logger.Int("stages", len(r.stages)))
	return nil
}

// SelectStages returns the stages to run in pipeline order. selected limits the run to the named
// stages; skipDiscovery drops the discover stage.
func SelectStages(selected []string, skipDiscovery bool) ([]string, error) {
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !slices.Contains(DefaultStages, s) {
			return nil, errors.Newf("unknown stage %q, valid stages are %s", s, strings.Join(DefaultStages, ", ")).
				Component("orchestrator").
				Category(errors.CategoryValidation).
				Build()
		}
		want[s] = true
	}

	stages := make([]string, 0, len(DefaultStages))
	for _, s := range DefaultStages {
		if len(want) > 0 && !want[s] {
			continue
		}
		if skipDiscovery && s == StageDiscover {
			continue
		}
		stages = append(stages, s)
	}
	if len(stages) == 0 {
		return nil, errors.Newf("no stages selected").
			Component("orchestrator").
			Category(errors.CategoryValidation).
			Build()
	}
	return stages, nil
}
