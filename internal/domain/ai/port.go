package ai

import (
	"context"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// QueryResult is the provider-neutral shape every adapter returns.
type QueryResult struct {
	Text       string
	Citations  []string
	TokensUsed int
	LatencyMS  int64
}

// PlatformAdapter is implemented once per answer engine.
type PlatformAdapter interface {
	Platform() scans.Platform
	// Usable is true iff the provider credential is present.
	Usable() bool
	// Query sends one prompt. Failures are *ProviderCallError.
	Query(ctx context.Context, prompt string) (QueryResult, error)
}
