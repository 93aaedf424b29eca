package estimator

// Thresholds holds the tier boundaries of one metric category. A value must be
// strictly greater than a boundary to reach that tier.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

var (
	MemoryThresholds = Thresholds{Medium: 50 * gib, High: 200 * gib, Critical: 800 * gib}
	TimeThresholds   = Thresholds{Medium: 30 * 1_000, High: 2 * 60 * 1_000, Critical: 5 * 60 * 1_000}
	RowsThresholds   = Thresholds{Medium: 10_000_000, High: 100_000_000, Critical: 1_000_000_000}
	CostThresholds   = Thresholds{Medium: 100_000, High: 1_000_000, Critical: 10_000_000}
)

// level returns the highest tier v exceeds, or ResourceLow.
func (t Thresholds) level(v float64) ResourceLevel {
	switch {
	case v > t.Critical:
		return ResourceCritical
	case v > t.High:
		return ResourceHigh
	case v > t.Medium:
		return ResourceMedium
	default:
		return ResourceLow
	}
}

// Measurements are the engine-reported figures fed to Classify. Nil means absent.
type Measurements struct {
	Rows        *int64
	TimeMs      *float64
	MemoryBytes *int64
	Cost        *float64
}

type category struct {
	value      *float64
	thresholds Thresholds
}

// categories lists the measurements in precedence order: memory, time, rows, cost.
func (m Measurements) categories() []category {
	return []category{
		{value: intToFloat(m.MemoryBytes), thresholds: MemoryThresholds},
		{value: m.TimeMs, thresholds: TimeThresholds},
		{value: intToFloat(m.Rows), thresholds: RowsThresholds},
		{value: m.Cost, thresholds: CostThresholds},
	}
}

// Classify derives the overall resource level.
//
// Categories are examined in precedence order. The first category that
// exceeds one of its thresholds decides the verdict; absent categories and
// categories under every threshold fall through to the next one.
func Classify(m Measurements) ResourceLevel {
	for _, c := range m.categories() {
		if c.value == nil {
			continue
		}
		if level := c.thresholds.level(*c.value); level != ResourceLow {
			return level
		}
	}
	return ResourceLow
}

func intToFloat(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
