// Package estimator turns engine EXPLAIN output into a normalized resource
// estimate: a severity level, human-readable metrics, warnings and a plan tree.
package estimator

// ResourceLevel is the overall severity verdict for a query. Levels are ordered
// low < medium < high < critical.
type ResourceLevel string

const (
	ResourceLow      ResourceLevel = "low"
	ResourceMedium   ResourceLevel = "medium"
	ResourceHigh     ResourceLevel = "high"
	ResourceCritical ResourceLevel = "critical"
)

// rank returns the position of the level in the low..critical ordering.
func (l ResourceLevel) rank() int {
	switch l {
	case ResourceMedium:
		return 1
	case ResourceHigh:
		return 2
	case ResourceCritical:
		return 3
	default:
		return 0
	}
}

// WarningSeverity classifies a single warning.
type WarningSeverity string

const (
	SeverityInfo     WarningSeverity = "info"
	SeverityWarning  WarningSeverity = "warning"
	SeverityError    WarningSeverity = "error"
	SeverityCritical WarningSeverity = "critical"
)

// EngineType identifies the query engine family behind a database.
type EngineType string

const (
	EngineTrino    EngineType = "trino"
	EnginePostgres EngineType = "postgres"
	EngineUnknown  EngineType = "unknown"
)

// Warning is a human-readable finding about a plan.
// Title doubles as the identity key when warnings are deduplicated.
type Warning struct {
	Severity       WarningSeverity `json:"severity"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Recommendation *string         `json:"recommendation"`
	AffectedTables []string        `json:"affectedTables"`
}

// PlanNode is one operator in a reconstructed execution plan tree.
// Rows and Cost are nil when the engine did not report them.
type PlanNode struct {
	NodeType string         `json:"nodeType"`
	Rows     *int64         `json:"rows"`
	Cost     *float64       `json:"cost"`
	Details  map[string]any `json:"details"`
	Children []*PlanNode    `json:"children"`
}

// EstimationMetrics holds the figures extracted from EXPLAIN output.
// Every value is paired with a display label, "N/A" when the value is absent.
type EstimationMetrics struct {
	ExecutionTimeMs    *float64 `json:"executionTimeMs"`
	ExecutionTimeLabel string   `json:"executionTimeLabel"`
	PlanningTimeMs     *float64 `json:"planningTimeMs"`
	PlanningTimeLabel  string   `json:"planningTimeLabel"`
	MemoryBytes        *int64   `json:"memoryBytes"`
	MemoryLabel        string   `json:"memoryLabel"`
	RowsEstimated      *int64   `json:"rowsEstimated"`
	RowsLabel          string   `json:"rowsLabel"`
	Cost               *float64 `json:"cost"`
	CostLabel          string   `json:"costLabel"`
}

// EstimationResult is the full answer for one estimated query.
type EstimationResult struct {
	ResourceLevel ResourceLevel     `json:"resourceLevel"`
	Metrics       EstimationMetrics `json:"metrics"`
	Warnings      []Warning         `json:"warnings"`
	RawPlan       string            `json:"rawPlan"`
	PlanTree      *PlanNode         `json:"planTree"`
	EngineType    EngineType        `json:"engineType"`
}

// NewMetrics builds metrics with labels derived from the given values.
func NewMetrics(executionTimeMs, planningTimeMs *float64, memoryBytes, rows *int64, cost *float64) EstimationMetrics {
	return EstimationMetrics{
		ExecutionTimeMs:    executionTimeMs,
		ExecutionTimeLabel: FormatTimeMs(executionTimeMs),
		PlanningTimeMs:     planningTimeMs,
		PlanningTimeLabel:  FormatTimeMs(planningTimeMs),
		MemoryBytes:        memoryBytes,
		MemoryLabel:        FormatBytes(memoryBytes),
		RowsEstimated:      rows,
		RowsLabel:          FormatRows(rows),
		Cost:               cost,
		CostLabel:          FormatCost(cost),
	}
}

// newPlanNode returns a node with non-nil collections so it serializes as {} and [].
func newPlanNode(nodeType string) *PlanNode {
	if nodeType == "" {
		nodeType = "Unknown"
	}
	return &PlanNode{
		NodeType: nodeType,
		Details:  map[string]any{},
		Children: []*PlanNode{},
	}
}

func newWarning(severity WarningSeverity, title, description, recommendation string, tables ...string) Warning {
	w := Warning{
		Severity:       severity,
		Title:          title,
		Description:    description,
		AffectedTables: []string{},
	}
	if recommendation != "" {
		w.Recommendation = &recommendation
	}
	if len(tables) > 0 {
		w.AffectedTables = append(w.AffectedTables, tables...)
	}
	return w
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }
