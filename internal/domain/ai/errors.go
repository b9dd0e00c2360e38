package ai

import (
	"errors"
	"fmt"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ProviderCallError is one adapter's failed call. It never escapes the
// per-call boundary of a scan.
type ProviderCallError struct {
	Platform scans.Platform
	Err      error
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Platform.DisplayName(), e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

// CallError wraps err for platform unless it already is a ProviderCallError.
func CallError(p scans.Platform, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderCallError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderCallError{Platform: p, Err: err}
}
