package ai

import (
	"context"
	"reflect"
	"testing"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

type stub struct {
	p      scans.Platform
	usable bool
}

func (s stub) Platform() scans.Platform { return s.p }
func (s stub) Usable() bool             { return s.usable }
func (s stub) Query(context.Context, string) (ai.QueryResult, error) {
	return ai.QueryResult{}, nil
}

func TestRegistryUsable(t *testing.T) {
	r := NewRegistry(
		stub{scans.PlatformOpenAI, true},
		nil,
		stub{scans.PlatformAnthropic, false},
		stub{scans.PlatformGemini, true},
	)
	want := []scans.Platform{scans.PlatformOpenAI, scans.PlatformGemini}
	if got := r.Platforms(); !reflect.DeepEqual(got, want) {
		t.Fatalf("platforms = %v, want %v", got, want)
	}
	if len(NewRegistry().Usable()) != 0 {
		t.Fatal("empty registry must have no usable adapters")
	}
}
