package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PratikDhanave/epcis-query-service/internal/metrics"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/query"
)

// Instrumented wraps an EventStore with tracing spans and prometheus metrics.
type Instrumented struct {
	next   EventStore
	tracer trace.Tracer
}

func Instrument(next EventStore) *Instrumented {
	return &Instrumented{
		next:   next,
		tracer: otel.Tracer("github.com/PratikDhanave/epcis-query-service/internal/store"),
	}
}

func (s *Instrumented) Query(ctx context.Context, plan *query.Plan) ([]models.Event, error) {
	ctx, span := s.tracer.Start(ctx, "store.Query", trace.WithAttributes(
		attribute.Int("epcis.filters", plan.Len()),
	))
	defer span.End()

	start := time.Now()
	events, err := s.next.Query(ctx, plan)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		fail(span, err)
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	span.SetAttributes(attribute.Int("epcis.events", len(events)))
	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	return events, nil
}

func (s *Instrumented) Capture(ctx context.Context, req *models.Request) (models.CaptureResponse, error) {
	ctx, span := s.tracer.Start(ctx, "store.Capture", trace.WithAttributes(
		attribute.Int("epcis.events", len(req.Events)),
	))
	defer span.End()

	resp, err := s.next.Capture(ctx, req)
	if err != nil {
		fail(span, err)
		metrics.CapturesTotal.WithLabelValues("error").Inc()
		return resp, err
	}

	span.SetAttributes(attribute.String("epcis.capture_id", resp.CaptureID))
	metrics.CapturesTotal.WithLabelValues("ok").Inc()
	metrics.CapturedEventsTotal.Add(float64(resp.EventCount))
	return resp, nil
}

func (s *Instrumented) PutMasterdata(ctx context.Context, records ...models.MasterData) error {
	ctx, span := s.tracer.Start(ctx, "store.PutMasterdata", trace.WithAttributes(
		attribute.Int("epcis.masterdata", len(records)),
	))
	defer span.End()

	err := s.next.PutMasterdata(ctx, records...)
	if err != nil {
		fail(span, err)
	}
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close() {
	s.next.Close()
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
