package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	packageName = "github.com/evergreen-ci/pkgsetup/setup"

	jobIDAttribute      = "pkgsetup.job.id"
	jobPackageAttribute = "pkgsetup.job.package"
	stepNameAttribute   = "pkgsetup.step.name"
	exitCodeAttribute   = "pkgsetup.step.exit_code"
	errorKindAttribute  = "pkgsetup.error.kind"
)

// BeforeStepFunc is called before each regular step runs. Returning an error
// fails that step without running it.
type BeforeStepFunc func(ctx context.Context, step string, job *Job) error

// Orchestrator runs the steps of a pipeline in order, stopping at the first
// failure, and runs the cleanup step afterwards.
type Orchestrator struct {
	pipeline   *Pipeline
	logger     grip.Journaler
	metrics    *Metrics
	tracer     trace.Tracer
	beforeStep BeforeStepFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger passed to every step. The default is the global
// grip logger.
func WithLogger(logger grip.Journaler) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics records the outcome of every step and job.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracerProvider sets the provider spans are created from. The default
// is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(packageName) }
}

// WithBeforeStep sets a hook that runs before every regular step.
func WithBeforeStep(fn BeforeStepFunc) Option {
	return func(o *Orchestrator) { o.beforeStep = fn }
}

// NewOrchestrator returns an orchestrator for a valid pipeline.
func NewOrchestrator(p *Pipeline, opts ...Option) (*Orchestrator, error) {
	if p == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline")
	}

	o := &Orchestrator{
		pipeline: p,
		logger:   grip.GetDefaultJournaler(),
		tracer:   otel.GetTracerProvider().Tracer(packageName),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Run executes the job. The steps run strictly in order and the first failure
// stops the job; the returned error is a *StepError describing it. The cleanup
// step runs exactly once afterwards if the working directory was created,
// unless ctx was canceled, in which case the working directory is left for
// inspection. A cleanup failure is logged and recorded in the job's results
// but does not change the returned error.
func (o *Orchestrator) Run(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ctx, span := o.tracer.Start(ctx, "job", trace.WithAttributes(
		attribute.String(jobIDAttribute, job.ID),
		attribute.String(jobPackageAttribute, job.Package),
	))
	defer span.End()

	job.Results = nil
	job.workingDirectoryCreated = false

	started := time.Now()
	o.logger.Info(message.Fields{
		"message":     "starting job",
		"job":         job.ID,
		"package":     job.Package,
		"url":         job.URL,
		"working_dir": job.WorkingDirectory,
	})

	var runErr error
	for _, step := range o.pipeline.Steps {
		if err := ctx.Err(); err != nil {
			runErr = NewInterruptedError(step.Name(), errors.Wrap(err, "job canceled"))
			break
		}
		if runErr = o.runStep(ctx, step, job, true); runErr != nil {
			break
		}
	}

	switch {
	case !job.WorkingDirectoryCreated():
		o.logger.Debug(message.Fields{
			"message": "working directory was not created, skipping cleanup",
			"job":     job.ID,
		})
	case ctx.Err() != nil:
		o.logger.Notice(message.Fields{
			"message":     "job was interrupted, leaving working directory for inspection",
			"job":         job.ID,
			"working_dir": job.WorkingDirectory,
		})
	default:
		o.runCleanup(ctx, job)
	}

	if o.metrics != nil {
		o.metrics.ObserveJob(job, runErr, time.Since(started))
	}

	if runErr != nil {
		span.SetStatus(codes.Error, "job failed")
		span.SetAttributes(attribute.String(errorKindAttribute, string(KindOf(runErr))))
		o.logger.Error(message.WrapError(runErr, message.Fields{
			"message":  "job failed",
			"job":      job.ID,
			"package":  job.Package,
			"kind":     KindOf(runErr),
			"duration": time.Since(started).String(),
		}))
		return runErr
	}

	o.logger.Info(message.Fields{
		"message":  "job completed successfully",
		"job":      job.ID,
		"package":  job.Package,
		"duration": time.Since(started).String(),
	})
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, step Step, job *Job, withHook bool) (err error) {
	name := step.Name()
	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("step %s", name), trace.WithAttributes(
		attribute.String(jobIDAttribute, job.ID),
		attribute.String(stepNameAttribute, name),
	))
	defer span.End()

	result := StepResult{Step: name, Started: time.Now()}
	defer func() {
		err = recovery.HandlePanicWithError(recover(), err, fmt.Sprintf("running step '%s'", name))

		result.Finished = time.Now()
		result.Status = StatusSucceeded
		if err != nil {
			stepErr := NewStepError(name, err)
			err = stepErr
			result.Status = StatusFailed
			result.ExitCode = stepErr.ExitCode
			result.Error = stepErr.Error()

			span.SetStatus(codes.Error, "step failed")
			span.RecordError(err)
			span.SetAttributes(
				attribute.String(errorKindAttribute, string(stepErr.Kind)),
				attribute.Int(exitCodeAttribute, stepErr.ExitCode),
			)
		}
		job.addResult(result)
		if o.metrics != nil {
			o.metrics.ObserveStep(job, result)
		}
	}()

	if withHook && o.beforeStep != nil {
		if err = o.beforeStep(ctx, name, job); err != nil {
			return errors.Wrapf(err, "preparing to run step '%s'", name)
		}
	}

	o.logger.Info(message.Fields{
		"message": "running step",
		"job":     job.ID,
		"step":    name,
	})

	if err = step.Execute(ctx, o.logger, job); err != nil {
		return err
	}

	o.logger.Info(message.Fields{
		"message":  "step completed",
		"job":      job.ID,
		"step":     name,
		"duration": time.Since(result.Started).String(),
	})
	return nil
}

func (o *Orchestrator) runCleanup(ctx context.Context, job *Job) {
	defer recovery.LogStackTraceAndContinue("job cleanup")

	if err := o.runStep(ctx, o.pipeline.Cleanup, job, false); err != nil {
		o.logger.Error(message.WrapError(err, message.Fields{
			"message":     "cleanup failed",
			"job":         job.ID,
			"working_dir": job.WorkingDirectory,
		}))
	}
}
