package workflow

import (
	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/models"
)

// ScoreSeverity maps a finding to its review priority. Deterministic in the
// finding's counters and the configured thresholds.
func ScoreSeverity(f *Finding, cfg config.DetectionConfig) models.GhostSeverity {
	switch f.Type {
	case models.GhostTypeWebhookDuplicado:
		// Data-quality signal, not behavioral.
		return models.GhostSeverityLow

	case models.GhostTypeCicloInfinito, models.GhostTypeRegressao, models.GhostTypeExcessoRequalificacao:
		if f.Threshold > 0 && f.TriggerCount >= 2*f.Threshold {
			return models.GhostSeverityHigh
		}
		return models.GhostSeverityMedium

	case models.GhostTypeTipoB:
		if f.NoShowCount >= cfg.TipoBCriticalNoShows {
			return models.GhostSeverityCritical
		}
		return models.GhostSeverityHigh

	case models.GhostTypeTipoA:
		if f.TotalR1Agendada >= cfg.TipoAHighScheduled {
			if f.DistinctDays >= cfg.TipoACriticalDays {
				return models.GhostSeverityCritical
			}
			return models.GhostSeverityHigh
		}
		return models.GhostSeverityMedium
	}
	return models.GhostSeverityLow
}
