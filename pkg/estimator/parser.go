package estimator

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Parser turns one engine family's EXPLAIN output into an EstimationResult.
// Implementations are stateless and safe for concurrent use.
type Parser interface {
	// Engine reports the engine family the parser understands.
	Engine() EngineType

	// ExplainSQL wraps sql in a plan-only EXPLAIN statement. The query is
	// planned but never executed.
	ExplainSQL(sql string) string

	// Parse never fails. Malformed output is logged and yields a result with
	// absent metrics, no warnings and no plan tree.
	Parse(output ExplainOutput, rawPlan string) *EstimationResult
}

// ExplainOutput is the tabular result of an EXPLAIN statement, or plain text
// when the engine answered with a single document.
type ExplainOutput struct {
	// Columns preserves the result column order; Rows are keyed by these names.
	Columns []string
	Rows    []map[string]any
	// Text is set instead of Rows for single-document output.
	Text *string
}

// RowsOutput wraps tabular EXPLAIN output.
func RowsOutput(columns []string, rows []map[string]any) ExplainOutput {
	return ExplainOutput{Columns: columns, Rows: rows}
}

// textOutput wraps EXPLAIN output that arrived as one string.
func textOutput(s string) ExplainOutput {
	return ExplainOutput{Text: &s}
}

// firstRow returns the first result row, or nil when there is none.
func (o ExplainOutput) firstRow() map[string]any {
	if len(o.Rows) == 0 {
		return nil
	}
	return o.Rows[0]
}

// orderedKeys returns the keys of row in column order. Keys missing from
// Columns follow in sorted order so iteration stays deterministic.
func (o ExplainOutput) orderedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	seen := make(map[string]struct{}, len(row))
	for _, c := range o.Columns {
		if _, ok := row[c]; ok {
			if _, dup := seen[c]; !dup {
				keys = append(keys, c)
				seen[c] = struct{}{}
			}
		}
	}
	var rest []string
	for k := range row {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Option configures a parser built by GetParser.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	trinoPatterns *TrinoPatterns
}

// WithLogger sets the logger used to report parse failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTrinoPatterns replaces the memory and row patterns used on Trino plans.
func WithTrinoPatterns(p TrinoPatterns) Option {
	return func(o *options) {
		o.trinoPatterns = &p
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DetectEngineType maps a database backend identifier to an engine family
// by case-insensitive substring match.
func DetectEngineType(backend string) EngineType {
	b := strings.ToLower(backend)
	switch {
	case strings.Contains(b, "trino"), strings.Contains(b, "presto"):
		return EngineTrino
	case strings.Contains(b, "postgres"), strings.Contains(b, "redshift"):
		return EnginePostgres
	default:
		return EngineUnknown
	}
}

// GetParser returns the parser for an engine family. Unknown engines fall back
// to the Trino parser, whose text heuristics tolerate arbitrary plan text.
func GetParser(engine EngineType, opts ...Option) Parser {
	o := buildOptions(opts)
	switch engine {
	case EnginePostgres:
		return NewPostgresParser(o.logger)
	default:
		p := NewTrinoParser(o.logger)
		if o.trinoPatterns != nil {
			p.patterns = *o.trinoPatterns
		}
		return p
	}
}

// guard runs fn and converts a panic into an error so a single bad heuristic
// cannot take down the request.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing plan: %v", r)
		}
	}()
	return fn()
}
