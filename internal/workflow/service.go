// Package workflow is the entry point for changing a project. Each operation
// loads the project, applies an in-memory rule (see Rules), saves it under an
// optimistic version check and only then dispatches the notifications and
// rewards the rule decided on.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexander-akhmetov/wbstrack/internal/debug"
	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/engine"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/store"
)

const tracerName = "github.com/alexander-akhmetov/wbstrack/internal/workflow"

// ActivityLog receives one line per operation and per failure.
// progress.Logger satisfies it.
type ActivityLog interface {
	Printf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLog struct{}

func (nopLog) Printf(string, ...any) {}
func (nopLog) Errorf(string, ...any) {}

// Result is the outcome of a successful operation.
type Result struct {
	// Project is the saved tree, Version already bumped.
	Project *domain.Project
	// Effects lists everything that was dispatched, in order.
	Effects []event.Effect
	// Cascade is set when an approval ran the cascade.
	Cascade *engine.Decision
	// DispatchErrors holds notifications and rewards that failed after the
	// save. They never undo the save.
	DispatchErrors []error
}

// Service runs workflow operations against a store.
type Service struct {
	store        store.ProjectStore
	notifier     Notifier
	rewarder     RewardDispatcher
	rules        Rules
	retry        RetryPolicy
	maxConflicts int
	clock        func() time.Time
	log          ActivityLog
	tracer       trace.Tracer
}

// Option is a functional option for Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLogger sets the activity log.
func WithLogger(l ActivityLog) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRetry bounds retries of loads, saves and dispatches.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.retry = RetryPolicy{MaxAttempts: maxAttempts, Delay: delay}
	}
}

// WithMaxConflicts sets how many times an operation is re-applied against a
// fresh load after a version conflict.
func WithMaxConflicts(n int) Option {
	return func(s *Service) {
		s.maxConflicts = n
	}
}

// WithRules replaces the whole rule set.
func WithRules(r Rules) Option {
	return func(s *Service) {
		s.rules = r
	}
}

// WithCascade sets the cascade configuration.
func WithCascade(c engine.Cascade) Option {
	return func(s *Service) {
		s.rules.Cascade = c
	}
}

// WithPoints sets the task-level rewards.
func WithPoints(p Points) Option {
	return func(s *Service) {
		s.rules.Points = p
	}
}

// WithAllowResubmitApproved lets SubmitProgress reopen approved tasks.
func WithAllowResubmitApproved(allow bool) Option {
	return func(s *Service) {
		s.rules.AllowResubmitApproved = allow
	}
}

// New creates a Service. notifier and rewarder may be nil, in which case the
// matching effects are decided but not delivered.
func New(st store.ProjectStore, notifier Notifier, rewarder RewardDispatcher, opts ...Option) *Service {
	s := &Service{
		store:        st,
		notifier:     notifier,
		rewarder:     rewarder,
		rules:        DefaultRules(),
		retry:        DefaultRetryPolicy(),
		maxConflicts: 3,
		clock:        time.Now,
		log:          nopLog{},
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the rules the service applies.
func (s *Service) Rules() Rules {
	return s.rules
}

// AssignTask sets a task's submitters and reviewers and notifies both.
func (s *Service) AssignTask(ctx context.Context, projectID string, path domain.Path, submitters, reviewers []string, actorID string) (*Result, error) {
	return s.run(ctx, "assign", projectID, path.String(), actorID, func(p *domain.Project, now time.Time) (Outcome, error) {
		return s.rules.Assign(p, path, submitters, reviewers, now)
	})
}

// SubmitProgress records progress on a task. Reaching 100% submits the task
// for review.
func (s *Service) SubmitProgress(ctx context.Context, projectID string, path domain.Path, completed, total int, actorID string) (*Result, error) {
	return s.run(ctx, "submit", projectID, path.String(), actorID, func(p *domain.Project, now time.Time) (Outcome, error) {
		return s.rules.Submit(p, path, completed, total, actorID, now)
	})
}

// ReviewTask approves or rejects a submitted task.
func (s *Service) ReviewTask(ctx context.Context, projectID string, path domain.Path, approved bool, actorID, comment string) (*Result, error) {
	return s.run(ctx, "review", projectID, path.String(), actorID, func(p *domain.Project, now time.Time) (Outcome, error) {
		return s.rules.Review(p, path, approved, actorID, comment, now)
	})
}

// ReviewLevel approves or rejects a submitted subpackage, package or project.
func (s *Service) ReviewLevel(ctx context.Context, projectID string, level event.Level, path domain.Path, approved bool, actorID, comment string) (*Result, error) {
	return s.run(ctx, "review-level", projectID, levelPath(level, path), actorID, func(p *domain.Project, now time.Time) (Outcome, error) {
		return s.rules.ReviewLevel(p, level, path, approved, actorID, comment, now)
	})
}

// ResubmitLevel sends a rejected subpackage, package or project back for
// review.
func (s *Service) ResubmitLevel(ctx context.Context, projectID string, level event.Level, path domain.Path, actorID string) (*Result, error) {
	return s.run(ctx, "resubmit-level", projectID, levelPath(level, path), actorID, func(p *domain.Project, now time.Time) (Outcome, error) {
		return s.rules.ResubmitLevel(p, level, path, actorID, now)
	})
}

type applyFunc func(p *domain.Project, now time.Time) (Outcome, error)

func (s *Service) run(ctx context.Context, op, projectID, where, actorID string, apply applyFunc) (_ *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "workflow."+op, trace.WithAttributes(
		attribute.String("wbstrack.project_id", projectID),
		attribute.String("wbstrack.path", where),
		attribute.String("wbstrack.actor", actorID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for attempt := 1; ; attempt++ {
		p, err := s.load(ctx, projectID)
		if err != nil {
			s.log.Errorf("%s %s: %v", op, where, err)
			return nil, &Error{Kind: ErrPersistence, Op: op, Path: where, Err: err}
		}

		out, err := apply(p, s.clock().UTC())
		if err != nil {
			debug.Logf("%s %s rejected: %v", op, where, err)
			return nil, err
		}

		err = s.save(ctx, p)
		if errors.Is(err, store.ErrConflict) && attempt < s.maxConflicts {
			debug.Logf("%s %s: version conflict on attempt %d, reloading", op, where, attempt)
			span.AddEvent("version conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		if err != nil {
			s.log.Errorf("%s %s: %v", op, where, err)
			return nil, &Error{Kind: ErrPersistence, Op: op, Path: where, Err: err}
		}

		s.log.Printf("%s %s by %s: project %s v%d, progress %d%%", op, where, actorOrUnknown(actorID), p.ID, p.Version, p.Progress)
		if out.Cascade != nil {
			for _, ro := range out.Cascade.Reopened {
				s.log.Printf("reopened %s %q from %s", ro.Level, ro.Name, ro.From)
			}
			for _, pr := range out.Cascade.Promotions {
				s.log.Printf("promoted %s %q from %s to submitted", pr.Level, pr.Name, pr.From)
			}
		}
		span.SetAttributes(attribute.Int("wbstrack.effects", len(out.Effects)))

		res := &Result{Project: p, Effects: out.Effects, Cascade: out.Cascade}
		res.DispatchErrors = s.dispatch(ctx, out.Effects)
		return res, nil
	}
}

func (s *Service) load(ctx context.Context, id string) (*domain.Project, error) {
	var p *domain.Project
	err := s.retry.do(ctx, "load "+id, func() error {
		var err error
		p, err = s.store.Load(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *domain.Project) error {
	err := s.retry.do(ctx, "save "+p.ID, func() error {
		return s.store.Save(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func actorOrUnknown(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
