package runner

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/iotest"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/blackwell-systems/sqlrunner/internal/store"
)

// fakeQuerier records every statement it receives.
type fakeQuerier struct {
	queries []string
	records []store.Record
	err     error
	ctxErr  error
}

func (f *fakeQuerier) QueryForList(ctx context.Context, query string) ([]store.Record, error) {
	f.queries = append(f.queries, query)
	f.ctxErr = ctx.Err()
	return f.records, f.err
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sql")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestNew_NilQuerier(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil) expected error, got nil")
	}
}

func TestExecute_PassesExactContent(t *testing.T) {
	q := &fakeQuerier{records: []store.Record{{Columns: []string{"x"}, Values: []any{int64(1)}}}}
	logger, logs := newObservedLogger()
	e, err := New(q, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path := writeScript(t, "SELECT 1 AS x;\n")
	if got := e.Execute(context.Background(), path); got != OutcomeRows {
		t.Fatalf("Execute() = %v, want %v", got, OutcomeRows)
	}

	if len(q.queries) != 1 {
		t.Fatalf("issued %d queries, want 1", len(q.queries))
	}
	if q.queries[0] != "SELECT 1 AS x;\n" {
		t.Errorf("query = %q, want %q", q.queries[0], "SELECT 1 AS x;\n")
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("level = %v, want info", entries[0].Level)
	}
	if got := entries[0].ContextMap()["result"]; got != "[{x=1}]" {
		t.Errorf("result field = %v, want [{x=1}]", got)
	}
}

func TestExecute_EmptyFileSkipped(t *testing.T) {
	q := &fakeQuerier{}
	logger, logs := newObservedLogger()
	e, _ := New(q, logger)

	path := writeScript(t, "")
	if got := e.Execute(context.Background(), path); got != OutcomeSkipped {
		t.Errorf("Execute() = %v, want %v", got, OutcomeSkipped)
	}
	if len(q.queries) != 0 {
		t.Errorf("issued %d queries for empty file, want 0", len(q.queries))
	}
	if logs.Len() != 0 {
		t.Errorf("got %d log entries for empty file, want 0", logs.Len())
	}
}

func TestExecute_WhitespaceIsNotEmpty(t *testing.T) {
	q := &fakeQuerier{}
	e, _ := New(q, zap.NewNop())

	path := writeScript(t, "   ")
	e.Execute(context.Background(), path)

	if len(q.queries) != 1 || q.queries[0] != "   \n" {
		t.Errorf("queries = %q, want one query %q", q.queries, "   \n")
	}
}

func TestExecute_QueryErrorLogged(t *testing.T) {
	q := &fakeQuerier{err: errors.New("syntax error near SELEKT")}
	logger, logs := newObservedLogger()
	e, _ := New(q, logger)

	path := writeScript(t, "SELEKT bogus")
	if got := e.Execute(context.Background(), path); got != OutcomeQueryError {
		t.Fatalf("Execute() = %v, want %v", got, OutcomeQueryError)
	}

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(errorLogs) != 1 {
		t.Fatalf("got %d error entries, want 1", len(errorLogs))
	}
	if errorLogs[0].Message != "could not execute query" {
		t.Errorf("message = %q", errorLogs[0].Message)
	}
	if logs.Len() != 1 {
		t.Errorf("got %d total entries, want exactly 1", logs.Len())
	}
}

func TestExecute_MissingFileIsReadError(t *testing.T) {
	q := &fakeQuerier{}
	logger, logs := newObservedLogger()
	e, _ := New(q, logger)

	got := e.Execute(context.Background(), filepath.Join(t.TempDir(), "gone.sql"))
	if got != OutcomeReadError {
		t.Fatalf("Execute() = %v, want %v", got, OutcomeReadError)
	}
	if len(q.queries) != 0 {
		t.Error("query issued for unreadable file")
	}

	entries := logs.FilterMessage("could not read script file").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("want one error entry for read failure, got %v", logs.All())
	}
}

func TestExecute_QueryIgnoresCancellation(t *testing.T) {
	q := &fakeQuerier{}
	e, _ := New(q, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e.Execute(ctx, writeScript(t, "SELECT 1"))
	if q.ctxErr != nil {
		t.Errorf("query context err = %v, want nil", q.ctxErr)
	}
}

func TestExecute_TableMode(t *testing.T) {
	q := &fakeQuerier{records: []store.Record{{Columns: []string{"x"}, Values: []any{int64(1)}}}}
	logger, logs := newObservedLogger()
	e, _ := New(q, logger, WithTable(true))

	e.Execute(context.Background(), writeScript(t, "SELECT 1 AS x"))

	result, _ := logs.All()[0].ContextMap()["result"].(string)
	if !strings.Contains(result, "(1 row)") {
		t.Errorf("table result = %q, want row footer", result)
	}
}

func TestExecute_SQLiteScenarios(t *testing.T) {
	st, err := store.Open(context.Background(), store.DefaultDriver, store.DefaultDSN)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger, logs := newObservedLogger()
	e, _ := New(st, logger)
	path := writeScript(t, "SELECT 1 AS x;")

	if got := e.Execute(context.Background(), path); got != OutcomeRows {
		t.Fatalf("Execute(SELECT 1) = %v, want rows", got)
	}
	if got := logs.All()[0].ContextMap()["result"]; got != "[{x=1}]" {
		t.Errorf("result = %v, want [{x=1}]", got)
	}

	if err := os.WriteFile(path, []byte("SELEKT bogus"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := e.Execute(context.Background(), path); got != OutcomeQueryError {
		t.Fatalf("Execute(SELEKT) = %v, want query error", got)
	}

	// The next valid script still runs after a failure.
	if err := os.WriteFile(path, []byte("SELECT 2 AS y"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := e.Execute(context.Background(), path); got != OutcomeRows {
		t.Fatalf("Execute after error = %v, want rows", got)
	}
	if got := logs.All()[2].ContextMap()["result"]; got != "[{y=2}]" {
		t.Errorf("result = %v, want [{y=2}]", got)
	}
}

func TestReadScript(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", ""},
		{"no trailing newline", "SELECT 1", "SELECT 1\n"},
		{"trailing newline kept single", "SELECT 1\n", "SELECT 1\n"},
		{"multiple lines", "SELECT\n  1\nAS x", "SELECT\n  1\nAS x\n"},
		{"crlf normalised", "SELECT 1\r\nAS x\r\n", "SELECT 1\nAS x\n"},
		{"lone cr ends line", "SELECT 1\rAS x", "SELECT 1\nAS x\n"},
		{"cr then crlf", "a\r\r\nb", "a\n\nb\n"},
		{"trailing cr", "SELECT 1\r", "SELECT 1\n"},
		{"mixed endings", "a\rb\nc\r\nd", "a\nb\nc\nd\n"},
		{"blank lines kept", "a\n\nb", "a\n\nb\n"},
		{"utf8 bom stripped", "\xef\xbb\xbfSELECT 'é'", "SELECT 'é'\n"},
		{"utf16le bom decoded", "\xff\xfeS\x00E\x00L\x00", "SEL\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, tt.content)
			got, err := ReadScript(path)
			if err != nil {
				t.Fatalf("ReadScript() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadScript_InvalidUTF8Replaced(t *testing.T) {
	path := writeScript(t, "SELECT '\xff'")
	got, err := ReadScript(path)
	if err != nil {
		t.Fatalf("ReadScript() error = %v", err)
	}
	if got != "SELECT '�'\n" {
		t.Errorf("ReadScript() = %q, want replacement character", got)
	}
}

func TestScanLines_CRLFAcrossReads(t *testing.T) {
	scanner := bufio.NewScanner(iotest.OneByteReader(strings.NewReader("a\r\nb\rc\r")))
	scanner.Split(scanLines)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan error: %v", err)
	}

	want := []string{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeSkipped:    "skipped",
		OutcomeRows:       "rows",
		OutcomeQueryError: "query_error",
		OutcomeReadError:  "read_error",
		Outcome(42):       "Outcome(42)",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
