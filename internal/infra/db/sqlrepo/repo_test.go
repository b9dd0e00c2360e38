package sqlrepo

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/bryanwahyu/geoscan/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

var (
	mysqlDialect    = Dialect{Name: "mysql", Placeholder: sq.Question}
	postgresDialect = Dialect{Name: "postgres", Placeholder: sq.Dollar, Returning: true}
)

func TestUpdateScanWritesWholeRow(t *testing.T) {
	score := 42
	msg := "boom"
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &domain.Scan{
		ID: "s1", Status: domain.StatusCompleted, Progress: 100, CurrentStep: "done",
		Keywords: []string{"crm"}, OverallScore: &score, ErrorMessage: &msg, CompletedAt: &now,
	}

	sqlStr, args, err := New(nil, postgresDialect).updateScan(s).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sqlStr, "UPDATE scans SET ") || !strings.HasSuffix(sqlStr, "WHERE id = $13") {
		t.Fatalf("sql = %s", sqlStr)
	}
	for _, col := range []string{"status", "progress", "current_step", "keywords", "overall_score", "error_message", "report_url", "completed_at"} {
		if !strings.Contains(sqlStr, col+" = $") {
			t.Errorf("column %s missing from %s", col, sqlStr)
		}
	}
	if len(args) != 13 || args[12] != domain.ScanID("s1") {
		t.Fatalf("args = %v", args)
	}
}

func TestPlaceholdersFollowDialect(t *testing.T) {
	s := &domain.Scan{ID: "s1", URL: "https://a.io", Domain: "a.io", Status: domain.StatusPending}

	my, _, err := New(nil, mysqlDialect).insertScan(s).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	pg, _, err := New(nil, postgresDialect).insertScan(s).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(my, "$1") || strings.Count(my, "?") != len(scanColumns) {
		t.Errorf("mysql sql = %s", my)
	}
	if strings.Contains(pg, "?") || !strings.Contains(pg, "$17") {
		t.Errorf("postgres sql = %s", pg)
	}
}

func TestInsertResponseEncodesLists(t *testing.T) {
	p := &domain.PlatformResponse{ID: "r1", QueryID: "q1", Platform: domain.PlatformGemini, Citations: []string{"https://a.io"}}
	_, args, err := New(nil, mysqlDialect).insertResponse(p).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if args[5] != `["https://a.io"]` {
		t.Fatalf("citations arg = %v", args[5])
	}
}

func TestScanErrorInsertReturning(t *testing.T) {
	e := &scanerrors.ScanError{ScanID: "s1", Message: " "}

	pg, args, err := NewScanErrorRepository(nil, postgresDialect).insert(e).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(pg, "RETURNING id") {
		t.Fatalf("sql = %s", pg)
	}
	if args[1] != "-" || args[2] != "-" || args[4] != "-" {
		t.Fatalf("blank fields must become dashes: %v", args)
	}

	my, _, _ := NewScanErrorRepository(nil, mysqlDialect).insert(e).ToSql()
	if strings.Contains(my, "RETURNING") {
		t.Fatalf("mysql sql = %s", my)
	}
}

func TestScanErrorListDefaultLimit(t *testing.T) {
	sqlStr, args, err := NewScanErrorRepository(nil, mysqlDialect).list("s1", 0).ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlStr, "ORDER BY created_at DESC, id DESC LIMIT 100") {
		t.Fatalf("sql = %s", sqlStr)
	}
	if len(args) != 1 || args[0] != "s1" {
		t.Fatalf("args = %v", args)
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0}, {"[]", 0}, {"null", 0}, {"not json", 0}, {`["a","b"]`, 2},
	}
	for _, tt := range tests {
		got := decodeList(tt.in)
		if got == nil || len(got) != tt.want {
			t.Errorf("decodeList(%q) = %#v", tt.in, got)
		}
	}
	if encodeList(nil) != "[]" {
		t.Errorf("encodeList(nil) = %q", encodeList(nil))
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, d := range []string{"mysql", "postgres"} {
		fsys, err := Migrations(d)
		if err != nil {
			t.Fatal(err)
		}
		files, err := fs.Glob(fsys, "*.sql")
		if err != nil || len(files) == 0 {
			t.Fatalf("%s: no migrations (%v)", d, err)
		}
		b, _ := fs.ReadFile(fsys, files[0])
		for _, table := range []string{tableScans, tableQueries, tableResponses, tableResults, tableErrors} {
			if !strings.Contains(string(b), "CREATE TABLE "+table+" (") {
				t.Errorf("%s: table %s missing", d, table)
			}
		}
		if !strings.Contains(string(b), "uq_response_query_platform") {
			t.Errorf("%s: unique response key missing", d)
		}
	}
	if _, err := gooseDialect("sqlite"); err == nil {
		t.Fatal("sqlite must be rejected")
	}
}
