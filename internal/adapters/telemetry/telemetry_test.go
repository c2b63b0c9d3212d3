package telemetry_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/incr/internal/adapters/telemetry"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type stringer struct{}

func (stringer) String() string { return "content-changed" }

func TestOTelTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := telemetry.NewOTelTracer("test", recorder)

	ctx, parent := tracer.Start(context.Background(), "process",
		ports.WithAttribute("run_id", "r1"),
		ports.WithAttribute("items", 3),
	)
	_, child := tracer.Start(ctx, "a.css")
	child.SetAttribute("reason", stringer{})
	child.SetAttribute("cached", false)
	child.SetAttribute("deps", []string{"b.css"})
	child.SetAttribute("took", 1.5)
	child.SetAttribute("bytes", int64(10))
	child.SetAttribute("other", struct{ A int }{1})
	child.RecordError(errors.New("boom"))
	child.RecordError(nil)
	child.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	got := spans[0]
	assert.Equal(t, "a.css", got.Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), got.Parent().SpanID())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "boom", got.Status().Description)
	assert.Contains(t, got.Attributes(), attribute.String("reason", "content-changed"))
	assert.Contains(t, got.Attributes(), attribute.Bool("cached", false))
	assert.Contains(t, got.Attributes(), attribute.StringSlice("deps", []string{"b.css"}))
	assert.Contains(t, got.Attributes(), attribute.String("other", "{1}"))

	assert.Contains(t, spans[1].Attributes(), attribute.String("run_id", "r1"))
	assert.Contains(t, spans[1].Attributes(), attribute.Int("items", 3))

	require.NoError(t, tracer.Shutdown(context.Background()))
}

func TestLogProcessor_LogsSpanEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	var lines []string
	log.EXPECT().Debug(gomock.Any()).Do(func(msg string) { lines = append(lines, msg) }).Times(2)

	tracer := telemetry.NewOTelTracer("test", telemetry.NewLogProcessor(log))
	_, first := tracer.Start(context.Background(), "a.css", ports.WithAttribute("reason", "new"))
	first.End()

	_, bad := tracer.Start(context.Background(), "b.css")
	bad.RecordError(errors.New("parse error"))
	bad.End()

	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "span a.css took "), lines[0])
	assert.Contains(t, lines[0], "reason=new")
	assert.Contains(t, lines[1], `error="parse error"`)
}

func TestLogProcessor_NilLogger(t *testing.T) {
	tracer := telemetry.NewOTelTracer("test", telemetry.NewLogProcessor(nil))
	_, span := tracer.Start(context.Background(), "x")
	assert.NotPanics(t, span.End)
}

func TestNoOpTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := telemetry.NewNoOpTracer().Start(ctx, "x", ports.WithAttribute("k", "v"))
	assert.Equal(t, ctx, newCtx)

	span.SetAttribute("k", 1)
	span.RecordError(errors.New("ignored"))
	span.End()
}
