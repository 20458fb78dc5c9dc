// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the
// occupancy daemon.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Location attributes
	LocationIDKey       = "occupancy.location_id"
	LocationKindKey     = "occupancy.location_kind"
	LocationStrategyKey = "occupancy.location_strategy"

	// Event attributes
	EventKindKey     = "occupancy.event_kind"
	EventCategoryKey = "occupancy.event_category"
	EventSourceIDKey = "occupancy.event_source_id"

	// Transition attributes
	TransitionReasonKey = "occupancy.transition_reason"
	TransitionCountKey  = "occupancy.transition_count"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// LocationAttributes creates span attributes identifying a location.
func LocationAttributes(id, kind, strategy string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LocationIDKey, id),
		attribute.String(LocationKindKey, kind),
		attribute.String(LocationStrategyKey, strategy),
	}
}

// EventAttributes creates span attributes describing an incoming
// occupancy event, for the span wrapping HandleEvent.
func EventAttributes(kind, category, sourceID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(EventKindKey, kind),
	}
	if category != "" {
		attrs = append(attrs, attribute.String(EventCategoryKey, category))
	}
	if sourceID != "" {
		attrs = append(attrs, attribute.String(EventSourceIDKey, sourceID))
	}
	return attrs
}

// TransitionAttributes creates span attributes describing the outcome of
// an engine call: how many StateTransitions it committed, and the reason
// of the first one (event/timeout/propagated), for the common case of a
// single committed transition.
func TransitionAttributes(reason string, count int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(TransitionCountKey, count),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(TransitionReasonKey, reason))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
