// Package runner reads the script file and runs it against the database.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/blackwell-systems/sqlrunner/internal/output"
	"github.com/blackwell-systems/sqlrunner/internal/store"
)

// maxLineSize bounds a single script line.
const maxLineSize = 16 * 1024 * 1024

// Querier runs a statement and returns all result rows.
type Querier interface {
	QueryForList(ctx context.Context, query string) ([]store.Record, error)
}

// Outcome describes what a single Execute call did.
type Outcome int

const (
	// OutcomeSkipped means the script was empty and no query was issued.
	OutcomeSkipped Outcome = iota
	// OutcomeRows means the query succeeded and its rows were logged.
	OutcomeRows
	// OutcomeQueryError means the database rejected or failed the query.
	OutcomeQueryError
	// OutcomeReadError means the script file could not be read.
	OutcomeReadError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRows:
		return "rows"
	case OutcomeQueryError:
		return "query_error"
	case OutcomeReadError:
		return "read_error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Executor runs the script file's content as one query per call.
type Executor struct {
	querier Querier
	logger  *zap.Logger
	table   bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithTable logs results as an aligned table instead of the one-line form.
func WithTable(enabled bool) Option {
	return func(e *Executor) { e.table = enabled }
}

// New creates an Executor. A nil logger discards output.
func New(q Querier, logger *zap.Logger, opts ...Option) (*Executor, error) {
	if q == nil {
		return nil, fmt.Errorf("querier cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{querier: q, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute reads path and, if it is not empty, runs its content as a single
// statement. Every failure is logged and reported through the Outcome;
// none is returned to the caller. The query is not cancelled when ctx is.
func (e *Executor) Execute(ctx context.Context, path string) Outcome {
	script, err := ReadScript(path)
	if err != nil {
		e.logger.Error("could not read script file", zap.String("path", path), zap.Error(err))
		return OutcomeReadError
	}

	if script == "" {
		return OutcomeSkipped
	}

	records, err := e.querier.QueryForList(context.WithoutCancel(ctx), script)
	if err != nil {
		e.logger.Error("could not execute query", zap.String("path", path), zap.Error(err))
		return OutcomeQueryError
	}

	var result string
	if e.table {
		result = "\n" + output.RenderResultTable(records)
	} else {
		result = output.FormatRecords(records)
	}
	e.logger.Info("script result", zap.Int("rows", len(records)), zap.String("result", result))
	return OutcomeRows
}

// ReadScript returns the content of path decoded as UTF-8 (a UTF-8 or
// UTF-16 byte order mark is honoured and stripped). "\n", "\r\n" and a
// lone "\r" all end a line; each is normalised to "\n" and every line,
// including the last, ends with one.
func ReadScript(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	decoded := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)

	var sb strings.Builder
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}

	return sb.String(), nil
}

// scanLines is bufio.ScanLines extended to treat a lone '\r' as a line
// terminator. A '\r' at the end of the buffer waits for more data so a
// "\r\n" split across reads is not taken for two line ends.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
