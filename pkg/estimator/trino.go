package estimator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Trino plans are read as flattened text. The patterns below are a best-effort
// layer: text that does not match simply leaves the metric absent.
var (
	defaultTrinoMemoryPattern = regexp.MustCompile(`(?i)(?:Memory|estimatedMemory)[=:]\s*([\d.]+)\s*(B|KB|MB|GB|TB)`)
	defaultTrinoRowsPattern   = regexp.MustCompile(`(?i)(?:rows|estimatedRows)[=:]\s*([\d,]+)`)

	trinoTableScanPattern = regexp.MustCompile(`TableScan\[.*?table\s*=\s*([^\s,\]]+)`)
	trinoPushdownPattern  = regexp.MustCompile(`(?i)filterPredicate|constraint`)
	trinoLineRowsPattern  = regexp.MustCompile(`(?i)rows[=:]\s*([\d,]+)`)
	trinoNodeTypePattern  = regexp.MustCompile(`^[-\s]*([A-Za-z][A-Za-z0-9\s]*?)(?:\[|$|\s*\()`)
)

var memoryUnits = map[string]float64{
	"B":  1,
	"KB": kib,
	"MB": mib,
	"GB": gib,
	"TB": tib,
}

// maxAffectedTables caps the tables listed on a pattern-derived warning.
const maxAffectedTables = 3

// TrinoPatterns holds the regular expressions used to pull estimates out of
// Trino plan text. Memory must capture a number and a unit, Rows a number.
type TrinoPatterns struct {
	Memory *regexp.Regexp
	Rows   *regexp.Regexp
}

// DefaultTrinoPatterns returns the built-in patterns.
func DefaultTrinoPatterns() TrinoPatterns {
	return TrinoPatterns{Memory: defaultTrinoMemoryPattern, Rows: defaultTrinoRowsPattern}
}

// CompileTrinoPatterns builds patterns from configuration strings. An empty
// string keeps the corresponding default.
func CompileTrinoPatterns(memory, rows string) (TrinoPatterns, error) {
	p := DefaultTrinoPatterns()
	if memory != "" {
		re, err := regexp.Compile(memory)
		if err != nil {
			return p, fmt.Errorf("compile memory pattern: %w", err)
		}
		if re.NumSubexp() < 2 {
			return p, fmt.Errorf("memory pattern must capture a value and a unit")
		}
		p.Memory = re
	}
	if rows != "" {
		re, err := regexp.Compile(rows)
		if err != nil {
			return p, fmt.Errorf("compile rows pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return p, fmt.Errorf("rows pattern must capture a value")
		}
		p.Rows = re
	}
	return p, nil
}

// TrinoParser handles Trino and Presto, and is the fallback for unknown engines.
type TrinoParser struct {
	logger   *zap.Logger
	patterns TrinoPatterns
}

// NewTrinoParser returns a Trino parser using the default patterns.
func NewTrinoParser(logger *zap.Logger) *TrinoParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrinoParser{logger: logger, patterns: DefaultTrinoPatterns()}
}

func (p *TrinoParser) Engine() EngineType { return EngineTrino }

func (p *TrinoParser) ExplainSQL(sql string) string {
	return "EXPLAIN (TYPE DISTRIBUTED, FORMAT JSON) " + sql
}

func (p *TrinoParser) Parse(output ExplainOutput, rawPlan string) *EstimationResult {
	var (
		memory, rows *int64
		warnings     []Warning
		tree         *PlanNode
	)

	err := guard(func() error {
		planText := trinoPlanText(output)
		if planText == "" {
			return nil
		}
		var err error
		memory, rows, warnings, err = p.scanPlanText(planText)
		if err != nil {
			return err
		}
		tree = buildTrinoTree(planText)
		return nil
	})
	if err != nil {
		p.logger.Warn("Error parsing Trino EXPLAIN output", zap.Error(err))
		memory, rows, warnings, tree = nil, nil, nil, nil
	}

	warnings = append(warnings, memoryWarnings(memory)...)
	warnings = append(warnings, rowWarnings(rows)...)

	return &EstimationResult{
		ResourceLevel: Classify(Measurements{Rows: rows, MemoryBytes: memory}),
		Metrics:       NewMetrics(nil, nil, memory, rows, nil),
		Warnings:      DeduplicateWarnings(warnings),
		RawPlan:       rawPlan,
		PlanTree:      tree,
		EngineType:    EngineTrino,
	}
}

// trinoPlanText picks the plan document out of EXPLAIN output.
func trinoPlanText(output ExplainOutput) string {
	if output.Text != nil {
		return *output.Text
	}
	row := output.firstRow()
	if row == nil {
		return ""
	}
	for _, key := range []string{"Query Plan", "QUERY PLAN", "query plan"} {
		if v, ok := row[key]; ok {
			return plainString(v)
		}
	}
	if keys := output.orderedKeys(row); len(keys) > 0 {
		return plainString(row[keys[0]])
	}
	return ""
}

func plainString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

// scanPlanText extracts the memory and row estimates and the structural warnings.
func (p *TrinoParser) scanPlanText(plan string) (memory, rows *int64, warnings []Warning, err error) {
	if m := p.patterns.Memory.FindStringSubmatch(plan); len(m) >= 3 {
		value, perr := strconv.ParseFloat(m[1], 64)
		if perr != nil {
			return nil, nil, nil, fmt.Errorf("parse memory estimate %q: %w", m[1], perr)
		}
		mult, ok := memoryUnits[strings.ToUpper(m[2])]
		if !ok {
			mult = 1
		}
		memory = int64Ptr(int64(math.Round(value * mult)))
	}

	if m := p.patterns.Rows.FindStringSubmatch(plan); len(m) >= 2 {
		n, perr := parseGroupedInt(m[1])
		if perr != nil {
			return nil, nil, nil, fmt.Errorf("parse row estimate %q: %w", m[1], perr)
		}
		rows = int64Ptr(n)
	}

	if strings.Contains(plan, "TableScan") {
		matches := trinoTableScanPattern.FindAllStringSubmatch(plan, -1)
		if len(matches) > 0 && !trinoPushdownPattern.MatchString(plan) {
			tables := make([]string, 0, maxAffectedTables)
			for _, m := range matches {
				if len(tables) == maxAffectedTables {
					break
				}
				tables = append(tables, m[1])
			}
			warnings = append(warnings, newWarning(SeverityWarning, "Full Table Scan",
				"No filter pushdown detected on table scan.",
				"Add WHERE clause on partition column.",
				tables...))
		}
	}

	if strings.Contains(plan, "CrossJoin") {
		warnings = append(warnings, newWarning(SeverityCritical, "Cartesian Join",
			"Cross join detected. This produces a cartesian product.",
			"Add join conditions to reduce row explosion."))
	}

	return memory, rows, warnings, nil
}

// parseGroupedInt parses an integer that may contain thousands separators.
func parseGroupedInt(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

// buildTrinoTree reconstructs the operator tree from indented plan text.
// One top-level operator is returned as the root; several are wrapped in a
// synthetic "Query" node.
func buildTrinoTree(plan string) *PlanNode {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(plan), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	nodes, _ := buildTrinoLevel(lines, 0, -1)
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		root := newPlanNode("Query")
		root.Children = nodes
		return root
	}
}

// buildTrinoLevel collects the siblings starting at lines[start] whose
// indentation is deeper than parentIndent, descending into deeper lines as
// children. It returns the nodes and the index of the first unconsumed line.
func buildTrinoLevel(lines []string, start, parentIndent int) ([]*PlanNode, int) {
	nodes := []*PlanNode{}
	i := start
	for i < len(lines) {
		indent := indentOf(lines[i])
		if indent <= parentIndent {
			break
		}

		node := parseTrinoLine(lines[i])
		i++
		if i < len(lines) && indentOf(lines[i]) > indent {
			node.Children, i = buildTrinoLevel(lines, i, indent)
		}
		nodes = append(nodes, node)
	}
	return nodes, i
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
}

// parseTrinoLine reads the operator name and inline row estimate from one line.
func parseTrinoLine(line string) *PlanNode {
	line = strings.TrimSpace(line)

	var nodeType string
	if m := trinoNodeTypePattern.FindStringSubmatch(line); m != nil {
		nodeType = strings.TrimSpace(m[1])
	} else {
		nodeType = strings.SplitN(line, "[", 2)[0]
		nodeType = strings.SplitN(nodeType, "(", 2)[0]
		nodeType = strings.TrimLeft(strings.TrimSpace(nodeType), "- ")
	}

	node := newPlanNode(nodeType)
	if m := trinoLineRowsPattern.FindStringSubmatch(line); m != nil {
		if n, err := parseGroupedInt(m[1]); err == nil {
			node.Rows = int64Ptr(n)
			// float64 so the details survive a JSON round trip unchanged
			node.Details["rows"] = float64(n)
		}
	}
	return node
}
