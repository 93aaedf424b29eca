package estimator

import (
	"fmt"
	"strconv"
)

// NotAvailable is the label used for metrics the engine did not report.
const NotAvailable = "N/A"

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
	tib = gib * 1024
)

// FormatBytes renders a byte count using binary units (B, KB, MB, GB, TB).
func FormatBytes(bytes *int64) string {
	if bytes == nil {
		return NotAvailable
	}
	b := *bytes
	switch {
	case b < kib:
		return fmt.Sprintf("%d B", b)
	case b < mib:
		return fmt.Sprintf("%.1f KB", float64(b)/kib)
	case b < gib:
		return fmt.Sprintf("%.1f MB", float64(b)/mib)
	case b < tib:
		return fmt.Sprintf("%.1f GB", float64(b)/gib)
	default:
		return fmt.Sprintf("%.1f TB", float64(b)/tib)
	}
}

// FormatRows renders a row count with K/M/B suffixes above one thousand.
func FormatRows(rows *int64) string {
	if rows == nil {
		return NotAvailable
	}
	r := *rows
	switch {
	case r < 1_000:
		return strconv.FormatInt(r, 10)
	case r < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(r)/1_000)
	case r < 1_000_000_000:
		return fmt.Sprintf("%.1fM", float64(r)/1_000_000)
	default:
		return fmt.Sprintf("%.1fB", float64(r)/1_000_000_000)
	}
}

// FormatTimeMs renders a duration given in milliseconds.
func FormatTimeMs(ms *float64) string {
	if ms == nil {
		return NotAvailable
	}
	v := *ms
	switch {
	case v < 1:
		return "< 1 ms"
	case v < 1_000:
		return fmt.Sprintf("%.1f ms", v)
	case v < 60_000:
		return fmt.Sprintf("%.2f sec", v/1_000)
	case v < 3_600_000:
		return fmt.Sprintf("%.1f min", v/60_000)
	default:
		return fmt.Sprintf("%.1f hr", v/3_600_000)
	}
}

// FormatCost renders planner cost units, which are relative and unitless.
func FormatCost(cost *float64) string {
	if cost == nil {
		return NotAvailable
	}
	c := *cost
	switch {
	case c < 1_000:
		return fmt.Sprintf("%.0f", c)
	case c < 1_000_000:
		return fmt.Sprintf("%.1fK", c/1_000)
	default:
		return fmt.Sprintf("%.1fM", c/1_000_000)
	}
}
