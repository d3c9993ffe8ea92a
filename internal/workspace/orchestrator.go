// Package workspace runs dependency resolution over a main repository and
// its dependency working copies.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chis/depsmith/internal/config"
	"github.com/chis/depsmith/internal/events"
	"github.com/chis/depsmith/internal/logging"
	"github.com/chis/depsmith/internal/resolver"
	"github.com/chis/depsmith/internal/storage"
	"github.com/chis/depsmith/internal/vcs"
	"github.com/chis/depsmith/internal/vcs/gitrepo"
)

// Opener opens the working copy at path.
type Opener func(path string) (vcs.Repository, error)

// Orchestrator resolves every configured dependency against the main
// repository, one at a time.
type Orchestrator struct {
	config  config.Config
	open    Opener
	logger  *logging.Logger
	storage storage.Storage
	bus     events.Publisher
	scanner *config.Scanner
}

// NewOrchestrator creates an orchestrator for cfg that opens working copies
// with go-git and logs to the default logger.
func NewOrchestrator(cfg config.Config) *Orchestrator {
	o := &Orchestrator{
		config: cfg,
		open:   gitrepo.OpenRepository,
		logger: logging.Default(),
	}
	o.scanner = config.NewScanner(&o.config)
	return o
}

// SetOpener replaces how working copies are opened.
func (o *Orchestrator) SetOpener(open Opener) {
	if open != nil {
		o.open = open
	}
}

// SetLogger sets the logger.
func (o *Orchestrator) SetLogger(l *logging.Logger) {
	if l != nil {
		o.logger = l
	}
}

// SetStorage sets where resolutions are recorded. nil disables history.
func (o *Orchestrator) SetStorage(store storage.Storage) {
	o.storage = store
}

// SetEventBus sets the event bus for publishing progress events
func (o *Orchestrator) SetEventBus(bus events.Publisher) {
	o.bus = bus
}

// Dependencies returns the configured dependencies followed by those found
// in the scan directories, without duplicate names.
func (o *Orchestrator) Dependencies(ctx context.Context) ([]config.Dependency, error) {
	cfg := o.config
	cfg.Dependencies = append([]config.Dependency(nil), o.config.Dependencies...)

	found, err := o.scanner.ScanAll(ctx, cfg.MainRepository)
	if err != nil {
		return nil, err
	}
	for _, dep := range found {
		if !cfg.AddDependency(dep) {
			o.logger.Debug("Ignoring scanned %s at %s: name already configured", dep.Name, dep.Path)
		}
	}
	return cfg.Dependencies, nil
}

// Run resolves every dependency once. Cancellation is checked between
// dependencies only; a resolution in progress always finishes. The result
// is returned even when err is non-nil; err joins the failure of every
// dependency so callers can match resolver errors with errors.Is.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if o.config.ShortName == "" {
		return nil, fmt.Errorf("no short name configured for the main repository")
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := &runLogger{logger: o.logger, ctx: ctx}

	deps, err := o.Dependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover dependencies: %w", err)
	}

	main, err := o.open(o.config.MainRepository)
	if err != nil {
		return nil, fmt.Errorf("failed to open main repository %s: %w", o.config.MainRepository, err)
	}
	defer o.closeRepository(ctx, main)

	result := &RunResult{
		RunID:     runID,
		ShortName: o.config.ShortName,
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]Outcome, 0, len(deps)),
	}
	if head, err := main.Head(); err == nil {
		result.MainBranch = head
	} else if errors.Is(err, vcs.ErrDetachedHead) {
		result.MainBranch = resolver.DetachedHead
	} else {
		log.Warn("Cannot read the branch of %s: %v", main.Name(), err)
	}

	o.logger.InfoContext(ctx, "Resolving %d dependencies of %s (branch %s)", len(deps), main.Name(), result.MainBranch)
	o.publish(events.EventRunStarted, runID, map[string]any{
		"main_branch":  result.MainBranch,
		"dependencies": len(deps),
	})

	res := resolver.New(
		resolver.WithLogger(log),
		resolver.WithFallbackBranches(o.config.FallbackBranches...),
	)

	var errs []error
	for i, dep := range deps {
		if err := ctx.Err(); err != nil {
			o.logger.WarnContext(ctx, "Run cancelled, skipping %d remaining dependencies", len(deps)-i)
			o.skip(result, deps[i:])
			errs = append(errs, err)
			break
		}

		outcome := o.resolveOne(ctx, log, res, main, dep, result.MainBranch)
		result.add(outcome)

		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
			if o.config.FailFast {
				o.logger.WarnContext(ctx, "Stopping after failure of %s (fail-fast)", dep.Name)
				o.skip(result, deps[i+1:])
				break
			}
		}
	}

	result.FinishedAt = time.Now().UTC()
	o.logger.InfoContext(ctx, "Run finished: %d resolved (%d changed), %d failed, %d skipped",
		result.Resolved, result.Changed, result.Failed, result.Skipped)
	o.publish(events.EventRunCompleted, runID, map[string]any{
		"total":    result.Total,
		"resolved": result.Resolved,
		"changed":  result.Changed,
		"failed":   result.Failed,
		"skipped":  result.Skipped,
	})

	return result, errors.Join(errs...)
}

func (o *Orchestrator) skip(result *RunResult, deps []config.Dependency) {
	for _, dep := range deps {
		result.add(Outcome{Dependency: dep.Name, Path: dep.Path, Status: StatusSkipped})
	}
}

func (o *Orchestrator) resolveOne(ctx context.Context, log *runLogger, res *resolver.Resolver, main vcs.Repository, dep config.Dependency, mainBranch string) Outcome {
	runID := logging.RunID(ctx)
	outcome := Outcome{Dependency: dep.Name, Path: dep.Path}
	o.publish(events.EventResolutionStarted, runID, map[string]any{"dependency": dep.Name, "path": dep.Path})

	resolution, err := o.resolve(ctx, log, res, main, dep, &outcome)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.Error = err.Error()
		o.logger.ErrorContext(ctx, "%v", err)
	} else {
		outcome.Status = StatusResolved
		outcome.Kind = resolution.Kind
		outcome.Ref = resolution.Ref
		outcome.CommitID = resolution.CommitID
		outcome.Label = resolution.Label
		o.compareWithHistory(ctx, &outcome, mainBranch)
	}

	o.record(ctx, outcome, mainBranch)

	if outcome.Err != nil {
		o.publish(events.EventResolutionFailed, runID, map[string]any{
			"dependency": dep.Name,
			"error":      outcome.Error,
		})
	} else {
		o.publish(events.EventResolutionComplete, runID, map[string]any{
			"dependency": dep.Name,
			"kind":       string(outcome.Kind),
			"ref":        outcome.Ref,
			"commit_id":  outcome.CommitID,
			"changed":    outcome.Changed,
		})
	}
	return outcome
}

func (o *Orchestrator) resolve(ctx context.Context, log *runLogger, res *resolver.Resolver, main vcs.Repository, dep config.Dependency, outcome *Outcome) (*resolver.Resolution, error) {
	repo, err := o.open(dep.Path)
	if err != nil {
		return nil, &resolver.ResolutionError{
			Repository: dep.Name,
			Err:        fmt.Errorf("failed to open %s: %w", dep.Path, err),
		}
	}
	defer o.closeRepository(ctx, repo)

	if o.config.MaterializeRemoteBranches {
		created, err := resolver.MaterializeRemoteBranches(repo, o.config.OnlyUntracked, log)
		outcome.Materialized = created
		if len(created) > 0 {
			o.publish(events.EventBranchMaterialized, logging.RunID(ctx), map[string]any{
				"dependency": dep.Name,
				"branches":   created,
			})
		}
		if err != nil {
			return nil, &resolver.ResolutionError{Repository: dep.Name, Err: err}
		}
	}

	return res.Resolve(repo, main, o.config.ShortName)
}

// compareWithHistory sets Changed and Previous from the last successful
// resolution on record for the same main branch. Without history every
// resolution counts as changed.
func (o *Orchestrator) compareWithHistory(ctx context.Context, outcome *Outcome, mainBranch string) {
	outcome.Changed = true
	if o.storage == nil {
		return
	}

	prev, found, err := o.storage.LastSuccessful(ctx, outcome.Dependency, mainBranch)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to read history of %s: %v", outcome.Dependency, err)
		return
	}
	if !found {
		return
	}
	outcome.Previous = prev.Ref
	outcome.Changed = prev.Ref != outcome.Ref || prev.CommitID != outcome.CommitID
}

// record saves the outcome. Storage errors are logged, never returned.
func (o *Orchestrator) record(ctx context.Context, outcome Outcome, mainBranch string) {
	if o.storage == nil {
		return
	}

	rec := storage.ResolutionRecord{
		RunID:      logging.RunID(ctx),
		Dependency: outcome.Dependency,
		MainBranch: mainBranch,
		ShortName:  o.config.ShortName,
		Kind:       string(outcome.Kind),
		Ref:        outcome.Ref,
		CommitID:   outcome.CommitID,
		Label:      outcome.Label,
		Success:    outcome.Status == StatusResolved,
		Error:      outcome.Error,
	}
	if _, err := o.storage.SaveResolution(ctx, rec); err != nil {
		o.logger.WarnContext(ctx, "Failed to record resolution of %s: %v", outcome.Dependency, err)
	}
}

func (o *Orchestrator) closeRepository(ctx context.Context, repo vcs.Repository) {
	if err := repo.Close(); err != nil {
		o.logger.WarnContext(ctx, "Failed to close %s: %v", repo.Name(), err)
	}
}

func (o *Orchestrator) publish(eventType, runID string, payload map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.NewEvent(eventType, runID, payload))
}

// runLogger carries the run ID into the resolver's log lines.
type runLogger struct {
	logger *logging.Logger
	ctx    context.Context
}

func (l *runLogger) Debug(format string, args ...any) { l.logger.DebugContext(l.ctx, format, args...) }
func (l *runLogger) Info(format string, args ...any)  { l.logger.InfoContext(l.ctx, format, args...) }
func (l *runLogger) Warn(format string, args ...any)  { l.logger.WarnContext(l.ctx, format, args...) }
