package postgres

import (
	"errors"
	"fmt"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

func TestIsDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"other", errors.New("boom"), false},
		{"unique", &pq.Error{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"fk", &pq.Error{Code: "23503"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicate(tt.err); got != tt.want {
				t.Errorf("IsDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDialect(t *testing.T) {
	d := Dialect()
	if d.Name != "postgres" || d.Placeholder != sq.Dollar || !d.Returning {
		t.Fatalf("dialect = %+v", d)
	}
}
