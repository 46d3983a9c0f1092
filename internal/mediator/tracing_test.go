package mediator

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recordingSpan captures the calls endActionSpan makes.
type recordingSpan struct {
	trace.Span
	attrs  []attribute.KeyValue
	errors []error
	ended  bool
}

func (r *recordingSpan) SetAttributes(kv ...attribute.KeyValue) { r.attrs = append(r.attrs, kv...) }
func (r *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	r.errors = append(r.errors, err)
}
func (r *recordingSpan) End(_ ...trace.SpanEndOption) { r.ended = true }

func TestEndActionSpan_RecordsError(t *testing.T) {
	s := &Session{}
	span := &recordingSpan{}
	blocked := &BlockedError{ActionID: "a1", Command: "systemPrune"}

	s.endActionSpan(span, "BLOCKED", "AUTO_REJECTED", blocked)

	if len(span.errors) != 1 || span.errors[0] != blocked {
		t.Fatalf("recorded errors = %v, want the refusal error", span.errors)
	}
	if !span.ended {
		t.Error("span not ended")
	}
	if len(span.attrs) != 2 {
		t.Errorf("attrs = %v, want tier and state", span.attrs)
	}
}

func TestEndActionSpan_NoErrorOnSuccess(t *testing.T) {
	s := &Session{}
	span := &recordingSpan{}

	s.endActionSpan(span, "SAFE", "AUTO_APPROVED", nil)

	if len(span.errors) != 0 {
		t.Errorf("recorded errors = %v, want none", span.errors)
	}
	if !span.ended {
		t.Error("span not ended")
	}
}
