package access

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taigaio/taiga/internal/services/roles"
)

var (
	ErrNotFound  = errors.New("target not found")
	ErrForbidden = errors.New("forbidden")
)

// FactsSource loads the facts of a target for a subject. Missing targets yield ErrNotFound.
type FactsSource interface {
	WorkspaceFacts(ctx context.Context, subject Subject, target Target) (*WorkspaceFacts, error)
	ProjectFacts(ctx context.Context, subject Subject, target Target) (*ProjectFacts, error)
}

// Service answers access questions over facts loaded from a FactsSource
type Service struct {
	source FactsSource
	tracer trace.Tracer
}

func NewService(source FactsSource) *Service {
	return &Service{
		source: source,
		tracer: otel.Tracer("Access"),
	}
}

// Can reports whether subject holds perm on target.
func (s *Service) Can(ctx context.Context, subject Subject, perm roles.Permission, target Target) (bool, error) {
	err := s.Check(ctx, subject, HasPerm(perm), target)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}

// Check evaluates guard on target and returns ErrForbidden when it does not pass and
// ErrNotFound when the target does not exist.
func (s *Service) Check(ctx context.Context, subject Subject, guard Guard, target Target) error {
	ctx, span := s.tracer.Start(ctx, "access.Check")
	defer span.End()
	span.SetAttributes(
		attribute.String("access.target_kind", string(target.Kind)),
		attribute.String("access.target", target.String()),
		attribute.String("access.guard", guard.String()),
		attribute.Bool("access.anonymous", subject.Anonymous),
	)

	allowed, err := s.evaluate(ctx, subject, guard, target)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Bool("access.allowed", allowed))
	if !allowed {
		return fmt.Errorf("%w: %s on %s %s", ErrForbidden, guard, target.Kind, target)
	}
	return nil
}

func (s *Service) evaluate(ctx context.Context, subject Subject, guard Guard, target Target) (bool, error) {
	switch target.Kind {
	case KindWorkspace:
		facts, err := s.source.WorkspaceFacts(ctx, subject, target)
		if err != nil {
			return false, err
		}
		if subject.Anonymous {
			return false, nil
		}
		return guard.workspace != nil && guard.workspace(*facts), nil
	case KindProject:
		facts, err := s.source.ProjectFacts(ctx, subject, target)
		if err != nil {
			return false, err
		}
		if subject.Anonymous && guard.requireUser {
			return false, nil
		}
		return guard.project != nil && guard.project(*facts), nil
	default:
		return false, fmt.Errorf("unknown target kind %q", target.Kind)
	}
}

// ProjectPermissions returns the effective permissions of subject on a project and whether
// the subject administers it
func (s *Service) ProjectPermissions(ctx context.Context, subject Subject, target Target) ([]roles.Permission, bool, error) {
	facts, err := s.source.ProjectFacts(ctx, subject, target)
	if err != nil {
		return nil, false, err
	}
	return EffectiveProjectPermissions(*facts), IsProjectAdmin(*facts), nil
}

// CanViewProject is the visibility check used when listing projects
func (s *Service) CanViewProject(ctx context.Context, subject Subject, target Target) (bool, error) {
	err := s.Check(ctx, subject, ViewProject(), target)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}
