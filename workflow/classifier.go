package workflow

import (
	"fmt"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"bitbucket.org/vendaops/salesops_backend/models"
)

// Finding is the outcome of classifying one deal's sequence: the matched
// pattern, the evidence counters and the subsequence that triggered it.
type Finding struct {
	Type      models.GhostType
	Reason    string
	Movements models.MovementHistory

	TotalR1Agendada int
	DistinctDays    int
	NoShowCount     int
	FirstR1Date     *time.Time
	LastR1Date      *time.Time

	// TriggerCount / Threshold drive severity escalation: how many times the
	// rule's condition fired versus the configured minimum.
	TriggerCount int
	Threshold    int
}

type detectionRule struct {
	Type     models.GhostType
	Evaluate func(seq TransitionSequence, c baseCounters, cfg config.DetectionConfig, catalog *models.StageCatalog) *Finding
}

// detectionRules is the fixed priority order: first match wins, a deal yields
// at most one case per scan. webhook_duplicado runs first so ingestion
// replays never pollute the behavioral statistics. Adding a seventh rule is
// appending a pair here.
var detectionRules = []detectionRule{
	{models.GhostTypeWebhookDuplicado, evalWebhookDuplicado},
	{models.GhostTypeCicloInfinito, evalCicloInfinito},
	{models.GhostTypeRegressao, evalRegressao},
	{models.GhostTypeExcessoRequalificacao, evalExcessoRequalificacao},
	{models.GhostTypeTipoB, evalTipoB},
	{models.GhostTypeTipoA, evalTipoA},
}

// Classify evaluates a deal's sequence against the rules in priority order.
// Pure: same sequence and config always yield the same finding (or none).
func Classify(seq TransitionSequence, cfg config.DetectionConfig, catalog *models.StageCatalog) *Finding {
	counters := computeCounters(seq)
	for _, rule := range detectionRules {
		if f := rule.Evaluate(seq, counters, cfg, catalog); f != nil {
			f.Type = rule.Type
			f.TotalR1Agendada = counters.totalScheduled
			f.DistinctDays = counters.distinctDays
			f.NoShowCount = counters.noShowCount
			f.FirstR1Date = counters.firstScheduled
			f.LastR1Date = counters.lastScheduled
			return f
		}
	}
	return nil
}

// baseCounters are the per-deal aggregates every rule and the severity scorer
// share: scheduled-transition volume, the calendar days it spread over, and
// the recorded no-shows.
type baseCounters struct {
	totalScheduled int
	distinctDays   int
	noShowCount    int
	firstScheduled *time.Time
	lastScheduled  *time.Time
	scheduledIdx   []int
	noShowIdx      []int
}

func computeCounters(seq TransitionSequence) baseCounters {
	var c baseCounters
	days := map[string]struct{}{}
	for i, t := range seq.Transitions {
		switch t.ToStage {
		case models.StageR1Agendada:
			c.totalScheduled++
			c.scheduledIdx = append(c.scheduledIdx, i)
			days[calendarDay(t.OccurredAt)] = struct{}{}
			at := t.OccurredAt
			if c.firstScheduled == nil {
				c.firstScheduled = &at
			}
			c.lastScheduled = &at
		case models.StageNoShow:
			c.noShowCount++
			c.noShowIdx = append(c.noShowIdx, i)
		}
	}
	c.distinctDays = len(days)
	return c
}

func calendarDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func movementEntry(t Transition) models.MovementEntry {
	return models.MovementEntry{
		Date:      t.OccurredAt,
		FromStage: t.FromStage,
		ToStage:   t.ToStage,
		Owner:     t.Owner,
	}
}

// webhook_duplicado: two consecutive events with identical (from, to) inside
// the duplicate window are an ingestion replay, not rep behavior.
func evalWebhookDuplicado(seq TransitionSequence, _ baseCounters, cfg config.DetectionConfig, _ *models.StageCatalog) *Finding {
	var movements models.MovementHistory
	pairs := 0
	for i := 1; i < len(seq.Transitions); i++ {
		prev := seq.Transitions[i-1]
		cur := seq.Transitions[i]
		if prev.FromStage != cur.FromStage || prev.ToStage != cur.ToStage {
			continue
		}
		gap := cur.OccurredAt.Sub(prev.OccurredAt)
		if gap < 0 || gap > cfg.WebhookDupWindow {
			continue
		}
		pairs++
		if len(movements) == 0 {
			movements = append(movements, movementEntry(prev))
		}
		movements = append(movements, movementEntry(cur))
	}
	if pairs == 0 {
		return nil
	}
	first := movements[0]
	return &Finding{
		Reason: fmt.Sprintf(
			"duplicate webhook delivery: transition %s -> %s repeated %d time(s) within %s",
			first.FromStage, first.ToStage, pairs, cfg.WebhookDupWindow,
		),
		Movements:    movements,
		TriggerCount: pairs,
		Threshold:    1,
	}
}

// ciclo_infinito: the same ordered stage-pair repeated enough times in-window
// means the deal is bouncing without net progress.
func evalCicloInfinito(seq TransitionSequence, _ baseCounters, cfg config.DetectionConfig, _ *models.StageCatalog) *Finding {
	type pair struct{ from, to string }
	byPair := map[pair][]int{}
	order := []pair{}
	for i, t := range seq.Transitions {
		p := pair{t.FromStage, t.ToStage}
		if _, seen := byPair[p]; !seen {
			order = append(order, p)
		}
		byPair[p] = append(byPair[p], i)
	}

	// Deterministic pick: the first pair (in sequence order) with the highest
	// repeat count.
	var best pair
	bestCount := 0
	for _, p := range order {
		if n := len(byPair[p]); n > bestCount {
			best = p
			bestCount = n
		}
	}
	if bestCount < cfg.CycleMinRepeats {
		return nil
	}

	var movements models.MovementHistory
	for _, i := range byPair[best] {
		movements = append(movements, movementEntry(seq.Transitions[i]))
	}
	return &Finding{
		Reason: fmt.Sprintf(
			"stage cycle without progress: %s -> %s repeated %d times in the window (minimum %d)",
			best.from, best.to, bestCount, cfg.CycleMinRepeats,
		),
		Movements:    movements,
		TriggerCount: bestCount,
		Threshold:    cfg.CycleMinRepeats,
	}
}

// regressao: repeated movement to a stage earlier in the funnel than the
// deal's prior stage. Moves into no_show are an attendance outcome, not a
// funnel regression, and the cycle rule has already had its chance.
func evalRegressao(seq TransitionSequence, _ baseCounters, cfg config.DetectionConfig, catalog *models.StageCatalog) *Finding {
	var movements models.MovementHistory
	count := 0
	for _, t := range seq.Transitions {
		if t.FromStage == "" || t.ToStage == models.StageNoShow {
			continue
		}
		fromOrder, okFrom := catalog.FunnelOrder(t.FromStage)
		toOrder, okTo := catalog.FunnelOrder(t.ToStage)
		if !okFrom || !okTo {
			continue
		}
		if toOrder < fromOrder {
			count++
			movements = append(movements, movementEntry(t))
		}
	}
	if count < cfg.RegressionMinMoves {
		return nil
	}
	return &Finding{
		Reason: fmt.Sprintf(
			"funnel regression: %d backward stage moves in the window (minimum %d)",
			count, cfg.RegressionMinMoves,
		),
		Movements:    movements,
		TriggerCount: count,
		Threshold:    cfg.RegressionMinMoves,
	}
}

// excesso_requalificacao: once a meeting has been scheduled, bouncing the
// deal back to the new-lead stage repeatedly suggests the pipeline is being
// reset to farm fresh scheduling credit.
func evalExcessoRequalificacao(seq TransitionSequence, c baseCounters, cfg config.DetectionConfig, _ *models.StageCatalog) *Finding {
	if len(c.scheduledIdx) == 0 {
		return nil
	}
	firstScheduled := c.scheduledIdx[0]
	var movements models.MovementHistory
	movements = append(movements, movementEntry(seq.Transitions[firstScheduled]))
	count := 0
	for i := firstScheduled + 1; i < len(seq.Transitions); i++ {
		if seq.Transitions[i].ToStage == models.StageNovoLead {
			count++
			movements = append(movements, movementEntry(seq.Transitions[i]))
		}
	}
	if count < cfg.RequalMinMoves {
		return nil
	}
	return &Finding{
		Reason: fmt.Sprintf(
			"excessive requalification: returned to the new-lead stage %d times after a meeting was scheduled (minimum %d)",
			count, cfg.RequalMinMoves,
		),
		Movements:    movements,
		TriggerCount: count,
		Threshold:    cfg.RequalMinMoves,
	}
}

// tipo_b: same-day rebook after no-show. A no-show immediately answered by a
// fresh scheduled meeting on the same calendar day pads scheduling counts
// without accountability.
func evalTipoB(seq TransitionSequence, c baseCounters, cfg config.DetectionConfig, _ *models.StageCatalog) *Finding {
	if c.noShowCount < cfg.TipoBMinNoShows {
		return nil
	}
	var movements models.MovementHistory
	sameDayRebooks := 0
	for _, nsIdx := range c.noShowIdx {
		noShow := seq.Transitions[nsIdx]
		for i := nsIdx + 1; i < len(seq.Transitions); i++ {
			next := seq.Transitions[i]
			if next.ToStage != models.StageR1Agendada {
				continue
			}
			if calendarDay(next.OccurredAt) == calendarDay(noShow.OccurredAt) {
				sameDayRebooks++
				movements = append(movements, movementEntry(noShow), movementEntry(next))
			}
			break
		}
	}
	if sameDayRebooks < cfg.TipoBMinSameDayRebooks {
		return nil
	}
	return &Finding{
		Reason: fmt.Sprintf(
			"same-day rebook after no-show: %d no-shows, %d rebooked on the same calendar day",
			c.noShowCount, sameDayRebooks,
		),
		Movements:    movements,
		TriggerCount: sameDayRebooks,
		Threshold:    cfg.TipoBMinNoShows,
	}
}

// tipo_a: heavy scheduling volume across multiple days with zero recorded
// no-shows. High volume normally carries some no-shows; their total absence
// is the signal.
func evalTipoA(seq TransitionSequence, c baseCounters, cfg config.DetectionConfig, _ *models.StageCatalog) *Finding {
	if c.totalScheduled < cfg.TipoAMinScheduled || c.noShowCount != 0 || c.distinctDays < cfg.TipoAMinDistinctDays {
		return nil
	}
	var movements models.MovementHistory
	for _, i := range c.scheduledIdx {
		movements = append(movements, movementEntry(seq.Transitions[i]))
	}
	return &Finding{
		Reason: fmt.Sprintf(
			"repeated scheduling with no recorded no-shows: %d meetings scheduled across %d distinct days",
			c.totalScheduled, c.distinctDays,
		),
		Movements:    movements,
		TriggerCount: c.totalScheduled,
		Threshold:    cfg.TipoAMinScheduled,
	}
}
