package estimator

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/query-estimator/pkg/jsonutil"
)

// scanNodeTypes are the operators that read table data. Their row estimates
// are summed; join and aggregate estimates are derived and would double count.
var scanNodeTypes = map[string]bool{
	"Seq Scan":         true,
	"Index Scan":       true,
	"Index Only Scan":  true,
	"Bitmap Heap Scan": true,
}

// seqScanWarnRows is the row estimate above which a sequential scan is flagged.
const seqScanWarnRows = 100_000

// planDetailKeys maps EXPLAIN JSON keys to the detail keys exposed on a PlanNode.
var planDetailKeys = []struct{ source, target string }{
	{"Relation Name", "table"},
	{"Index Name", "index"},
	{"Filter", "filter"},
	{"Join Filter", "joinFilter"},
	{"Sort Key", "sortKey"},
}

// PostgresParser handles PostgreSQL and Redshift EXPLAIN (FORMAT JSON) output.
type PostgresParser struct {
	logger *zap.Logger
}

// NewPostgresParser returns a Postgres parser.
func NewPostgresParser(logger *zap.Logger) *PostgresParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresParser{logger: logger}
}

func (p *PostgresParser) Engine() EngineType { return EnginePostgres }

func (p *PostgresParser) ExplainSQL(sql string) string {
	return "EXPLAIN (FORMAT JSON, COSTS) " + sql
}

func (p *PostgresParser) Parse(output ExplainOutput, rawPlan string) *EstimationResult {
	var (
		scanned  int64
		cost     *float64
		warnings []Warning
		tree     *PlanNode
	)

	err := guard(func() error {
		plan, err := postgresRootPlan(output)
		if err != nil || plan == nil {
			return err
		}
		if c, ok := jsonutil.Number(plan["Total Cost"]); ok {
			cost = float64Ptr(c)
		}
		scanned, warnings = walkPostgresPlan(plan, warnings)
		tree = buildPostgresTree(plan)
		return nil
	})
	if err != nil {
		p.logger.Error("Error parsing PostgreSQL EXPLAIN output", zap.Error(err))
		scanned, cost, warnings, tree = 0, nil, nil, nil
	}

	var rows *int64
	if scanned > 0 {
		rows = int64Ptr(scanned)
	}

	warnings = append(warnings, rowWarnings(rows)...)
	warnings = append(warnings, costWarnings(cost)...)

	return &EstimationResult{
		ResourceLevel: Classify(Measurements{Rows: rows, Cost: cost}),
		Metrics:       NewMetrics(nil, nil, nil, rows, cost),
		Warnings:      DeduplicateWarnings(warnings),
		RawPlan:       rawPlan,
		PlanTree:      tree,
		EngineType:    EnginePostgres,
	}
}

// postgresRootPlan locates the root "Plan" object. A nil map with a nil error
// means the output held no recognizable plan.
func postgresRootPlan(output ExplainOutput) (map[string]any, error) {
	doc, err := postgresPlanDocument(output)
	if err != nil || len(doc) == 0 {
		return nil, err
	}
	entry, ok := jsonutil.Object(doc[0])
	if !ok {
		return nil, nil
	}
	plan, ok := jsonutil.Object(entry["Plan"])
	if !ok {
		return nil, nil
	}
	return plan, nil
}

// postgresPlanDocument finds the EXPLAIN JSON array in whichever shape the
// driver delivered it: decoded rows, a JSON string column, or raw text.
func postgresPlanDocument(output ExplainOutput) ([]any, error) {
	if output.Text != nil {
		return decodePlanArray(*output.Text)
	}

	row := output.firstRow()
	if row == nil {
		return nil, nil
	}
	if _, ok := row["Plan"]; ok {
		return []any{row}, nil
	}
	if v, ok := row["QUERY PLAN"]; ok {
		switch doc := v.(type) {
		case string:
			return decodePlanArray(doc)
		case []byte:
			return decodePlanArray(string(doc))
		default:
			items, _ := jsonutil.Slice(doc)
			return items, nil
		}
	}
	for _, key := range output.orderedKeys(row) {
		switch v := row[key].(type) {
		case string:
			if strings.HasPrefix(strings.TrimSpace(v), "[") {
				if doc, err := decodePlanArray(v); err == nil {
					return doc, nil
				}
			}
		default:
			if items, ok := jsonutil.Slice(v); ok {
				return items, nil
			}
		}
	}
	return nil, nil
}

func decodePlanArray(s string) ([]any, error) {
	var doc any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("decode plan JSON: %w", err)
	}
	items, _ := jsonutil.Slice(doc)
	return items, nil
}

// walkPostgresPlan sums the row estimates of scan operators across the tree and
// appends structural warnings.
func walkPostgresPlan(node map[string]any, warnings []Warning) (int64, []Warning) {
	var scanned int64
	nodeType := jsonutil.String(node["Node Type"])
	planRows, _ := jsonutil.Number(node["Plan Rows"])

	if scanNodeTypes[nodeType] {
		scanned = int64(planRows)

		if nodeType == "Seq Scan" && planRows > seqScanWarnRows {
			relation := "unknown"
			if v, ok := node["Relation Name"]; ok {
				relation = jsonutil.String(v)
			}
			rowsLabel := FormatRows(int64Ptr(int64(planRows)))
			warnings = append(warnings, newWarning(SeverityWarning, "Sequential Scan",
				fmt.Sprintf("Sequential scan on '%s' (~%s rows).", relation, rowsLabel),
				"Consider adding an index or WHERE clause.",
				relation))
		}
	}

	if nodeType == "Nested Loop" && !jsonutil.Truthy(node["Join Filter"]) {
		warnings = append(warnings, newWarning(SeverityCritical, "Cartesian Product",
			"Nested loop without join condition detected.",
			"Add JOIN conditions to avoid cartesian product."))
	}

	children, _ := jsonutil.Slice(node["Plans"])
	for _, c := range children {
		child, ok := jsonutil.Object(c)
		if !ok {
			continue
		}
		var childRows int64
		childRows, warnings = walkPostgresPlan(child, warnings)
		scanned += childRows
	}

	return scanned, warnings
}

// buildPostgresTree mirrors the EXPLAIN JSON tree as PlanNodes.
func buildPostgresTree(node map[string]any) *PlanNode {
	pn := newPlanNode(jsonutil.String(node["Node Type"]))
	if rows, ok := jsonutil.Number(node["Plan Rows"]); ok {
		pn.Rows = int64Ptr(int64(rows))
	}
	if cost, ok := jsonutil.Number(node["Total Cost"]); ok {
		pn.Cost = float64Ptr(cost)
	}
	for _, k := range planDetailKeys {
		if v, ok := node[k.source]; ok {
			pn.Details[k.target] = v
		}
	}

	children, _ := jsonutil.Slice(node["Plans"])
	for _, c := range children {
		if child, ok := jsonutil.Object(c); ok {
			pn.Children = append(pn.Children, buildPostgresTree(child))
		}
	}
	return pn
}
