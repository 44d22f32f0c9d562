// Package events defines the structs published on the eventbus during a
// request. Subscribers (tracing, tests) pick the lifecycle and
// authorization events they care about; nothing here depends on the
// packages that publish.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation. Aborted
// reports that the whole request was refused rather than completing
// with field-level errors.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Aborted       bool
	Duration      time.Duration
}
