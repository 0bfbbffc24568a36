// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

// Package evaluate runs loaded policies against target data and folds the
// outcomes into one result.
package evaluate

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ansible/ansible-policy/internal/engine"
	"github.com/ansible/ansible-policy/internal/input"
	"github.com/ansible/ansible-policy/internal/loader"
	"github.com/ansible/ansible-policy/internal/plugin"
	"github.com/ansible/ansible-policy/internal/policy/transpile"
	"github.com/ansible/ansible-policy/internal/policy/types"
	"github.com/ansible/ansible-policy/internal/result"
	"github.com/ansible/ansible-policy/pkg/errutil"
)

var tracer = otel.Tracer("ansible-policy/evaluate")

// Orchestrator evaluates policy sources against a target path.
type Orchestrator struct {
	registry *plugin.Registry
	loaders  map[string]input.Loader
	fallback input.Loader
	workers  int
	emitter  *transpile.Emitter
	ownsEmit bool
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLoader sets the loader for one target type.
func WithLoader(targetType string, l input.Loader) Option {
	return func(o *Orchestrator) { o.loaders[targetType] = l }
}

// WithDefaultLoader sets the loader for target types without their own.
func WithDefaultLoader(l input.Loader) Option {
	return func(o *Orchestrator) { o.fallback = l }
}

// WithWorkers sets how many evaluations run at once. Values below two run
// everything sequentially.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithEmitter sets where transpiled policies are persisted before
// evaluation. Without it the orchestrator uses its own scratch directory,
// removed by Close.
func WithEmitter(e *transpile.Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New returns an orchestrator. Play and task targets are scanned from
// playbooks; every other type is read from record files.
func New(registry *plugin.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		loaders: map[string]input.Loader{
			types.TargetPlay: input.ScannerLoader{Scanner: input.PlaybookScanner{}},
			types.TargetTask: input.ScannerLoader{Scanner: input.PlaybookScanner{}},
		},
		workers: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fallback == nil {
		o.fallback = input.NewFileLoader(registry.InputTypes())
	}
	if o.emitter == nil {
		o.emitter = transpile.NewEmitter("")
		o.ownsEmit = true
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Close releases the scratch directory the orchestrator created.
func (o *Orchestrator) Close() error {
	if !o.ownsEmit {
		return nil
	}
	return o.emitter.Close()
}

// job is one (policy, record) pair with the engine resolved for it.
type job struct {
	policy *types.CompiledPolicy
	record *input.Record
	engine engine.Engine
}

// Run evaluates every policy of sources against the data at targetPath and
// returns the summarized result. Any error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, sources []*loader.Source, targetPath string) (res *result.EvaluationResult, err error) {
	runID := ulid.Make().String()
	ctx, span := tracer.Start(ctx, "evaluate.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("target.path", targetPath),
			attribute.Int("sources", len(sources)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	policies, err := o.Compile(sources)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("policies", len(policies)))

	for _, p := range policies {
		if _, err := o.emitter.Ensure(p); err != nil {
			return nil, oops.Code(errutil.CodeBackendInvocation).With("policy", p.Name).Wrap(err)
		}
	}

	jobs, err := o.plan(ctx, policies, targetPath)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("evaluations", len(jobs)))

	results, err := o.execute(ctx, jobs)
	if err != nil {
		return nil, err
	}

	res, err = o.registry.Summarizer().Summarize(ctx, results)
	if err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "evaluation finished",
		"run_id", runID,
		"policies", len(policies),
		"evaluations", len(jobs),
		"violation", res.Violation(),
	)
	return res, nil
}

// Compile turns sources into compiled policies. Raw policies pass through;
// each enabled policy book policy is transpiled by the plugin resolved for
// its target type.
func (o *Orchestrator) Compile(sources []*loader.Source) ([]*types.CompiledPolicy, error) {
	var out []*types.CompiledPolicy
	for _, src := range sources {
		if src.Compiled != nil {
			out = append(out, src.Compiled)
			continue
		}
		for _, set := range src.Book {
			for _, p := range set.Policies {
				if !p.Enabled {
					continue
				}
				cp, err := o.registry.Transpiler(p.TargetType).TranspilePolicy(set, p)
				if err != nil {
					return nil, oops.With("source", src.Name, "path", src.Path, "policy", p.Name).
						Wrapf(err, "transpiling policy %q", p.Name)
				}
				out = append(out, cp)
			}
		}
	}
	return out, nil
}

func (o *Orchestrator) loaderFor(targetType string) input.Loader {
	if l, ok := o.loaders[targetType]; ok {
		return l
	}
	return o.fallback
}

// plan loads the records of every policy target through a cache scoped to
// this run and pairs them with engines, in policy then record order.
func (o *Orchestrator) plan(ctx context.Context, policies []*types.CompiledPolicy, targetPath string) ([]job, error) {
	cache := input.NewCache()
	records := make([][]*input.Record, len(policies))

	load := func(ctx context.Context, i int) error {
		target := policies[i].Metadata.Target
		recs, err := cache.Load(ctx, o.loaderFor(target), target, targetPath)
		if err != nil {
			return oops.With("policy", policies[i].Name).Wrap(err)
		}
		if len(recs) == 0 {
			return oops.Code(errutil.CodeMissingTargetData).
				With("policy", policies[i].Name).
				With("target_type", target).
				With("path", targetPath).
				Errorf("no %s data found in %s", target, targetPath)
		}
		records[i] = recs
		return nil
	}
	if err := o.forEach(ctx, len(policies), load); err != nil {
		return nil, err
	}

	var jobs []job
	for i, p := range policies {
		eng, err := o.registry.EngineFor(p.Language, p.Metadata.Target)
		if err != nil {
			return nil, oops.With("policy", p.Name).Wrap(err)
		}
		for _, r := range records[i] {
			jobs = append(jobs, job{policy: p, record: r, engine: eng})
		}
	}
	return jobs, nil
}

// execute runs the jobs and returns their results in job order.
func (o *Orchestrator) execute(ctx context.Context, jobs []job) ([]*result.SingleResult, error) {
	results := make([]*result.SingleResult, len(jobs))
	err := o.forEach(ctx, len(jobs), func(ctx context.Context, i int) error {
		sr, err := o.evaluate(ctx, jobs[i])
		if err != nil {
			return err
		}
		results[i] = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, j job) (*result.SingleResult, error) {
	ctx, span := tracer.Start(ctx, "evaluate.policy",
		trace.WithAttributes(
			attribute.String("policy.name", j.policy.Name),
			attribute.String("policy.language", string(j.policy.Language)),
			attribute.String("target.type", j.record.Type),
			attribute.String("target.name", j.record.Name),
		),
	)
	defer span.End()

	start := time.Now()
	sr, err := j.engine.Evaluate(ctx, j.policy, j.record)
	if err != nil {
		RecordBackendError(j.policy.Language)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, oops.With("policy", j.policy.Name, "target", j.record.Name).Wrap(err)
	}
	RecordEvaluation(j.policy.Language, time.Since(start), sr)
	span.SetAttributes(attribute.String("validation", sr.Validation.String()))

	o.logger.DebugContext(ctx, "policy evaluated",
		"policy", j.policy.Name,
		"target_type", j.record.Type,
		"target", j.record.Name,
		"validation", sr.Validation.String(),
		"action", string(sr.ActionKind),
	)
	return sr, nil
}

// forEach calls fn for 0..n-1, sequentially or on a bounded errgroup. The
// first error cancels the remaining calls.
func (o *Orchestrator) forEach(ctx context.Context, n int, fn func(context.Context, int) error) error {
	if o.workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
