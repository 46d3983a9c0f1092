// Tracing instrumentation for the mediation dispatcher.
package mediator

import (
	"context"

	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startActionSpan starts a span covering one proposed action end to end.
func (s *Session) startActionSpan(ctx context.Context, actionID, command string) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "mediator.propose")
	span.SetAttributes(
		attribute.String("action.id", actionID),
		attribute.String("action.command", command),
		attribute.String("session.id", s.id),
	)
	return ctx, span
}

// endActionSpan records the resolution of the action on its span.
func (s *Session) endActionSpan(span trace.Span, tier, state string, err error) {
	if tier != "" {
		span.SetAttributes(attribute.String("action.tier", tier))
	}
	if state != "" {
		span.SetAttributes(attribute.String("action.state", state))
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startExecSpan starts a span for the underlying tool execution.
func (s *Session) startExecSpan(ctx context.Context, command string) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "executor."+command)
	return ctx, span
}

// endExecSpan records the execution result on its span.
func (s *Session) endExecSpan(span trace.Span, result ExecResult, err error) {
	span.SetAttributes(
		attribute.Bool("exec.failed", result.Failed),
		attribute.Bool("exec.empty", result.Empty),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
