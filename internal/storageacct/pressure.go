package storageacct

import "github.com/rblogdb/rblog/model"

// ClassifyPressure is a pure function from a storage report and an
// available-bytes budget to a pressure level, usage ratio, and
// level-specific recommendation. Ratio is clamped to [0, 1];
// availableBytes <= 0 forces ratio 1 (BLOCKED).
func ClassifyPressure(report model.StorageReport, availableBytes int64) model.PressureReport {
	var ratio float64
	if availableBytes <= 0 {
		ratio = 1
	} else {
		ratio = float64(report.EstimatedBytes) / float64(availableBytes)
		if ratio > 1 {
			ratio = 1
		}
	}

	level, recommendation := levelFor(ratio)

	return model.PressureReport{
		Level:          level,
		UsageRatio:     ratio,
		Recommendation: recommendation,
	}
}

func levelFor(ratio float64) (model.PressureLevel, string) {
	switch {
	case ratio < 0.5:
		return model.PressureNormal, "no action needed"
	case ratio < 0.7:
		return model.PressureCompact, "consider running compaction to bound replay cost"
	case ratio < 0.8:
		return model.PressureExportPrompt, "export older events to an archive before usage climbs further"
	case ratio < 0.9:
		return model.PressureAggressive, "compact and export aggressively; storage is close to its budget"
	default:
		return model.PressureBlocked, "storage budget exhausted; writes should be refused by the caller"
	}
}
