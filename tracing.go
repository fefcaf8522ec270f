// tracing.go: OpenTelemetry spans for population rounds
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package lazycache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "github.com/agilira/lazycache"
	populateSpanName = "lazycache.populate"
	retryEventName   = "lazycache.retry"
	attrKey          = attribute.Key("lazycache.key")
	attrAttempts     = attribute.Key("lazycache.attempts")
	attrAttempt      = attribute.Key("lazycache.attempt")
	attrMaxAttempts  = attribute.Key("lazycache.max_attempts")
	attrCommitted    = attribute.Key("lazycache.committed")
	attrErrorCode    = attribute.Key("lazycache.error_code")
	attrAttemptError = attribute.Key("error.message")
)

// startPopulateSpan opens one internal span per population round.
func (c *lazyCache) startPopulateSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, populateSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrKey.String(key)),
	)
}

// recordRetryEvent adds a span event for an attempt that will be retried.
func recordRetryEvent(span trace.Span, attempt, maxAttempts int, err error) {
	span.AddEvent(retryEventName, trace.WithAttributes(
		attrAttempt.Int(attempt),
		attrMaxAttempts.Int(maxAttempts),
		attrAttemptError.String(err.Error()),
	))
}

// endPopulateSpan records the outcome of a round on its span.
func endPopulateSpan(span trace.Span, attempts int, committed bool, err error) {
	span.SetAttributes(attrAttempts.Int(attempts), attrCommitted.Bool(committed))
	if err != nil {
		span.SetAttributes(attrErrorCode.String(string(GetErrorCode(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
