// Package mocks holds mockery-generated mocks of the webhook collaborators.
// Regenerate with `go tool mockery`; this file is not generated.
package mocks

import (
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/stretchr/testify/mock"
)

// MatchEvent creates a custom matcher for event arguments
func MatchEvent(matcher func(webhook.Event) bool) interface{} {
	return mock.MatchedBy(matcher)
}
