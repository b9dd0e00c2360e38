package scans

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusScraping, true},
		{StatusScraping, StatusGeneratingQueries, true},
		{StatusGeneratingQueries, StatusQueryingPlatforms, true},
		{StatusQueryingPlatforms, StatusQueryingPlatforms, true},
		{StatusQueryingPlatforms, StatusAnalyzing, true},
		{StatusAnalyzing, StatusCompleted, true},
		{StatusPending, StatusQueryingPlatforms, false},
		{StatusAnalyzing, StatusScraping, false},
		{StatusCompleted, StatusAnalyzing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusFailed, false},
		{StatusScraping, StatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestAdvanceRejectsProgressDecrease(t *testing.T) {
	s := &Scan{Status: StatusQueryingPlatforms, Progress: 40}
	err := s.Advance(StatusQueryingPlatforms, 30, "x")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if s.Progress != 40 {
		t.Fatalf("progress mutated to %d", s.Progress)
	}
}

func TestAdvanceHundredOnlyWhenCompleted(t *testing.T) {
	s := &Scan{Status: StatusAnalyzing, Progress: 90}
	if err := s.Advance(StatusAnalyzing, 100, "x"); err == nil {
		t.Fatal("expected error for 100 outside COMPLETED")
	}
	if err := s.Complete(72, time.Now()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.Progress != 100 || s.OverallScore == nil || *s.OverallScore != 72 {
		t.Fatalf("unexpected scan after Complete: %+v", s)
	}
}

func TestFailKeepsProgress(t *testing.T) {
	s := &Scan{Status: StatusQueryingPlatforms, Progress: 47, CurrentStep: "Queried 3/8"}
	if err := s.Fail("boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if s.Status != StatusFailed || s.Progress != 47 {
		t.Fatalf("got status=%s progress=%d", s.Status, s.Progress)
	}
	if s.ErrorMessage == nil || *s.ErrorMessage != "boom" {
		t.Fatalf("error message not recorded")
	}
	if err := s.Fail("again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second Fail should be rejected, got %v", err)
	}
}

func TestRegionSelect(t *testing.T) {
	got := DefaultRegions().Select([]string{"jp", "xx", "us", "us"})
	if len(got) != 2 || got[0].Code != "us" || got[1].Code != "jp" {
		t.Fatalf("Select = %+v", got)
	}
}

func TestPlatformDisplayName(t *testing.T) {
	if PlatformOpenAI.DisplayName() != "ChatGPT" {
		t.Errorf("openai display name = %q", PlatformOpenAI.DisplayName())
	}
	if Platform("MISTRAL").DisplayName() != "MISTRAL" {
		t.Errorf("unknown platform should fall back to key")
	}
}
