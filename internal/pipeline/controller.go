// Package pipeline runs the refinement and per-profession generation sequence
// and reports its progress incrementally.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/logging"
	"github.com/jonathan/persona-shift/internal/metrics"
	"github.com/jonathan/persona-shift/internal/types"
)

// RunInput is the user input for one run
type RunInput struct {
	Professions string
	Context     string
	BaseImage   generation.Image
}

// Controller drives runs against a generation client. It is safe for
// concurrent use; each Run it drives is independent.
type Controller struct {
	client      generation.Client
	logger      *zap.Logger
	callTimeout time.Duration
	newID       func() string
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger used for run diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.OrNop(logger)
	}
}

// WithCallTimeout bounds every generation client call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.callTimeout = d
	}
}

// WithIDGenerator overrides persona ID generation
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewController creates a controller over client
func NewController(client generation.Client, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		logger: logging.OrNop(nil),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one full run, recording state and personas into run as it goes.
// On failure the run ends in the failed phase with every persona appended so
// far still present, and the error is returned.
func (c *Controller) Run(ctx context.Context, in RunInput, run *Run) error {
	if run == nil {
		return errors.New("run is required")
	}

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	started := time.Now()
	err := c.execute(ctx, in, run)
	if err != nil {
		kind := ErrorKind(err)
		c.logger.Error("generation run failed",
			zap.String("kind", kind),
			zap.Int("completed", run.State().CompletedCount),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		metrics.RunsTotal.WithLabelValues(kind).Inc()
		run.fail(err)
		return err
	}

	c.logger.Info("generation run complete",
		zap.Int("personas", run.State().CompletedCount),
		zap.Duration("elapsed", time.Since(started)),
	)
	metrics.RunsTotal.WithLabelValues(string(types.PhaseComplete)).Inc()
	run.complete()
	return nil
}

func (c *Controller) execute(ctx context.Context, in RunInput, run *Run) error {
	if in.BaseImage.Empty() {
		return errors.New("base image is required")
	}

	run.beginRefining()
	c.logger.Debug("refining input", zap.String("professions", in.Professions))

	var refined *types.RefinedInput
	err := c.call(ctx, generation.OpRefine, func(callCtx context.Context) error {
		var err error
		refined, err = c.client.Refine(callCtx, in.Professions, in.Context)
		return err
	})
	if err != nil {
		return &StepError{Step: generation.OpRefine, Index: -1, Cause: err}
	}
	if refined == nil {
		return &StepError{Step: generation.OpRefine, Index: -1, Cause: &generation.SchemaError{
			Op:      generation.OpRefine,
			Message: "refinement returned no result",
		}}
	}
	if len(refined.Professions) != types.TargetPersonaCount {
		return &StepError{Step: generation.OpRefine, Index: -1, Cause: &MalformedRefinementError{
			Got:  len(refined.Professions),
			Want: types.TargetPersonaCount,
		}}
	}

	run.beginGenerating(refined)

	for i, field := range refined.Professions {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: "generate", Index: i, Field: field, Cause: err}
		}

		run.beginItem(i, field)
		persona, err := c.generateOne(ctx, i, in.BaseImage, field, refined.Context)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return &StepError{Step: "generate", Index: i, Field: field, Cause: err}
		}

		run.appendPersona(i, *persona)
		metrics.PersonasGenerated.Inc()
		c.logger.Debug("persona generated", zap.Int("index", i), zap.String("field", field))
	}

	return nil
}

func (c *Controller) generateOne(ctx context.Context, i int, base generation.Image, field, styleContext string) (*types.Persona, error) {
	var details *types.PersonaDetails
	err := c.call(ctx, generation.OpGenerateDetails, func(callCtx context.Context) error {
		var err error
		details, err = c.client.GenerateDetails(callCtx, field, styleContext)
		return err
	})
	if err != nil {
		return nil, &StepError{Step: generation.OpGenerateDetails, Index: i, Field: field, Cause: err}
	}

	var imageURL string
	err = c.call(ctx, generation.OpGenerateImage, func(callCtx context.Context) error {
		var err error
		imageURL, err = c.client.GenerateImage(callCtx, base, field, styleContext)
		return err
	})
	if err != nil {
		return nil, &StepError{Step: generation.OpGenerateImage, Index: i, Field: field, Cause: err}
	}

	persona := types.NewPersona(c.newID(), field, *details, imageURL)
	if err := persona.Validate(); err != nil {
		return nil, &StepError{Step: generation.OpGenerateDetails, Index: i, Field: field, Cause: &generation.SchemaError{
			Op:      generation.OpGenerateDetails,
			Message: "incomplete persona",
			Cause:   err,
		}}
	}
	return &persona, nil
}

// call runs fn under the per-call timeout and records its latency
func (c *Controller) call(ctx context.Context, op string, fn func(context.Context) error) error {
	callCtx := ctx
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(callCtx)

	status := "ok"
	if err != nil {
		status = ErrorKind(err)
	}
	metrics.CallDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%s timed out after %s: %w", op, c.callTimeout, context.DeadlineExceeded)
	}
	return err
}
