package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DetectionConfig carries the tunable knobs of the ghost-appointment
// classifier. Thresholds and the funnel order are organization policy, not
// algorithm constants, so they are injected into the classifier rather than
// hard-coded. Env overrides allow rule tuning without a redeploy.
type DetectionConfig struct {
	// Lookback window of the scan in days.
	DaysBack int

	// tipo_a: repeated scheduling with no recorded no-shows.
	TipoAMinScheduled    int
	TipoAMinDistinctDays int
	TipoAHighScheduled   int
	TipoACriticalDays    int

	// tipo_b: same-day rebook after no-show.
	TipoBMinNoShows        int
	TipoBMinSameDayRebooks int
	TipoBCriticalNoShows   int

	// ciclo_infinito: same ordered stage-pair repeated in-window.
	CycleMinRepeats int

	// regressao: moves against the funnel order.
	RegressionMinMoves int

	// excesso_requalificacao: bounced back to the new-lead stage after a
	// meeting had already been scheduled.
	RequalMinMoves int

	// webhook_duplicado: identical consecutive transitions within this window
	// are ingestion replays, not rep behavior.
	WebhookDupWindow time.Duration

	// Persister chunk size (bounds transaction size).
	PersistBatchSize int
}

// DefaultDetectionConfig returns production defaults, then applies env
// overrides (GHOST_* keys, one per knob).
func DefaultDetectionConfig() DetectionConfig {
	cfg := DetectionConfig{
		DaysBack:               14,
		TipoAMinScheduled:      3,
		TipoAMinDistinctDays:   2,
		TipoAHighScheduled:     5,
		TipoACriticalDays:      4,
		TipoBMinNoShows:        2,
		TipoBMinSameDayRebooks: 2,
		TipoBCriticalNoShows:   4,
		CycleMinRepeats:        3,
		RegressionMinMoves:     2,
		RequalMinMoves:         2,
		WebhookDupWindow:       60 * time.Second,
		PersistBatchSize:       100,
	}

	cfg.DaysBack = intFromEnv("GHOST_SCAN_DAYS_BACK", cfg.DaysBack)
	cfg.TipoAMinScheduled = intFromEnv("GHOST_TIPO_A_MIN_SCHEDULED", cfg.TipoAMinScheduled)
	cfg.TipoAMinDistinctDays = intFromEnv("GHOST_TIPO_A_MIN_DISTINCT_DAYS", cfg.TipoAMinDistinctDays)
	cfg.TipoAHighScheduled = intFromEnv("GHOST_TIPO_A_HIGH_SCHEDULED", cfg.TipoAHighScheduled)
	cfg.TipoACriticalDays = intFromEnv("GHOST_TIPO_A_CRITICAL_DAYS", cfg.TipoACriticalDays)
	cfg.TipoBMinNoShows = intFromEnv("GHOST_TIPO_B_MIN_NO_SHOWS", cfg.TipoBMinNoShows)
	cfg.TipoBMinSameDayRebooks = intFromEnv("GHOST_TIPO_B_MIN_SAME_DAY_REBOOKS", cfg.TipoBMinSameDayRebooks)
	cfg.TipoBCriticalNoShows = intFromEnv("GHOST_TIPO_B_CRITICAL_NO_SHOWS", cfg.TipoBCriticalNoShows)
	cfg.CycleMinRepeats = intFromEnv("GHOST_CYCLE_MIN_REPEATS", cfg.CycleMinRepeats)
	cfg.RegressionMinMoves = intFromEnv("GHOST_REGRESSION_MIN_MOVES", cfg.RegressionMinMoves)
	cfg.RequalMinMoves = intFromEnv("GHOST_REQUAL_MIN_MOVES", cfg.RequalMinMoves)
	if v := intFromEnv("GHOST_WEBHOOK_DUP_WINDOW_SECONDS", 0); v > 0 {
		cfg.WebhookDupWindow = time.Duration(v) * time.Second
	}
	if v := intFromEnv("GHOST_PERSIST_BATCH_SIZE", 0); v >= 50 && v <= 100 {
		cfg.PersistBatchSize = v
	}
	return cfg
}

// GhostScanInterval returns how often the background scheduler runs a scan.
// Zero disables the scheduler (external trigger only).
func GhostScanInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("GHOST_SCAN_INTERVAL_HOURS"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Hour
}

// CaseListBaseURL is the review UI deep link prefix used in alerts.
func CaseListBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("GHOST_CASE_LIST_URL")); v != "" {
		return v
	}
	return "/auditoria/ghost-cases"
}
