package estimator

import "fmt"

// DeduplicateWarnings drops warnings whose title was already seen.
// Title comparison is case-sensitive and the first occurrence wins.
func DeduplicateWarnings(warnings []Warning) []Warning {
	seen := make(map[string]struct{}, len(warnings))
	unique := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if _, ok := seen[w.Title]; ok {
			continue
		}
		seen[w.Title] = struct{}{}
		unique = append(unique, w)
	}
	return unique
}

func memoryWarnings(memoryBytes *int64) []Warning {
	if memoryBytes == nil {
		return nil
	}
	desc := fmt.Sprintf("Estimated memory usage: %s.", FormatBytes(memoryBytes))
	switch v := float64(*memoryBytes); {
	case v > MemoryThresholds.Critical:
		return []Warning{newWarning(SeverityCritical, "Excessive Memory Estimate", desc,
			"Add filters to reduce data volume or break into smaller queries.")}
	case v > MemoryThresholds.High:
		return []Warning{newWarning(SeverityWarning, "High Memory Estimate", desc,
			"Consider optimizing to reduce memory consumption.")}
	}
	return nil
}

func rowWarnings(rows *int64) []Warning {
	if rows == nil {
		return nil
	}
	desc := fmt.Sprintf("Planner estimates %s rows.", FormatRows(rows))
	switch v := float64(*rows); {
	case v > RowsThresholds.Critical:
		return []Warning{newWarning(SeverityCritical, "Very Large Result Set", desc,
			"Add WHERE clause or LIMIT to reduce result size.")}
	case v > RowsThresholds.High:
		return []Warning{newWarning(SeverityWarning, "Large Result Set", desc,
			"Consider if all rows are needed.")}
	}
	return nil
}

func costWarnings(cost *float64) []Warning {
	if cost == nil {
		return nil
	}
	desc := fmt.Sprintf("Query has cost of %s units.", FormatCost(cost))
	switch {
	case *cost > CostThresholds.Critical:
		return []Warning{newWarning(SeverityCritical, "Very High Cost Query", desc,
			"Review query plan for optimization opportunities.")}
	case *cost > CostThresholds.High:
		return []Warning{newWarning(SeverityWarning, "High Cost Query", desc,
			"Consider adding indexes or filters.")}
	}
	return nil
}
