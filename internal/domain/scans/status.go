package scans

import (
	"fmt"
	"time"
)

// Status enum
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusScraping          Status = "SCRAPING"
	StatusGeneratingQueries Status = "GENERATING_QUERIES"
	StatusQueryingPlatforms Status = "QUERYING_PLATFORMS"
	StatusAnalyzing         Status = "ANALYZING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
)

// transitions lists the valid predecessor states of each status.
// A status listing itself accepts progress-only updates.
var transitions = map[Status][]Status{
	StatusScraping:          {StatusPending},
	StatusGeneratingQueries: {StatusScraping},
	StatusQueryingPlatforms: {StatusGeneratingQueries, StatusQueryingPlatforms},
	StatusAnalyzing:         {StatusQueryingPlatforms, StatusAnalyzing},
	StatusCompleted:         {StatusAnalyzing},
	StatusFailed: {
		StatusPending, StatusScraping, StatusGeneratingQueries,
		StatusQueryingPlatforms, StatusAnalyzing,
	},
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, p := range transitions[to] {
		if p == from {
			return true
		}
	}
	return false
}

// Advance moves the scan forward. Progress never goes backwards and only
// COMPLETED may report 100.
func (s *Scan) Advance(to Status, progress int, step string) error {
	if to == StatusFailed {
		return fmt.Errorf("%w: use Fail to enter %s", ErrInvalidTransition, StatusFailed)
	}
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	if progress < s.Progress {
		return fmt.Errorf("%w: progress %d -> %d", ErrInvalidTransition, s.Progress, progress)
	}
	if progress > 100 || (progress == 100 && to != StatusCompleted) {
		return fmt.Errorf("%w: progress %d in %s", ErrInvalidTransition, progress, to)
	}
	s.Status = to
	s.Progress = progress
	s.CurrentStep = step
	return nil
}

// Complete is the final ANALYZING -> COMPLETED step.
func (s *Scan) Complete(score int, at time.Time) error {
	if err := s.Advance(StatusCompleted, 100, "Scan complete"); err != nil {
		return err
	}
	s.OverallScore = &score
	s.CompletedAt = &at
	return nil
}

// Fail moves a non-terminal scan into FAILED; progress is left untouched.
func (s *Scan) Fail(msg string) error {
	if !CanTransition(s.Status, StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, StatusFailed)
	}
	s.Status = StatusFailed
	s.ErrorMessage = &msg
	s.CurrentStep = "Scan failed"
	return nil
}
