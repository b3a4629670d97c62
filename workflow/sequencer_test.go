package workflow

import (
	"testing"
	"time"

	"bitbucket.org/vendaops/salesops_backend/models"
)

func strPtr(s string) *string { return &s }

func activity(id int, dealId, from, to string, at time.Time) models.DealActivity {
	ev := models.DealActivity{
		ID:           id,
		DealId:       dealId,
		ActivityKind: models.ActivityKindStageChange,
		ToStage:      to,
		OccurredAt:   at,
		OwnerEmail:   "sdr@vendaops.com",
	}
	if from != "" {
		ev.FromStage = strPtr(from)
	}
	return ev
}

func TestBuildSequences_GroupsAndOrders(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []models.DealActivity{
		activity(5, "deal-b", "Qualificação", "R1 Agendada", at.Add(2*time.Hour)),
		activity(1, "deal-a", "", "Novo Lead", at),
		activity(3, "deal-b", "Novo Lead", "Qualificação", at),
		activity(2, "deal-a", "Novo Lead", "Qualificação", at.Add(time.Hour)),
	}

	sequences, skipped := BuildSequences(events, models.DefaultStageCatalog())
	if len(skipped) != 0 {
		t.Fatalf("expected no skipped deals, got %v", skipped)
	}
	if len(sequences) != 2 {
		t.Fatalf("expected 2 sequences, got %d", len(sequences))
	}
	// Deterministic deal order.
	if sequences[0].DealId != "deal-a" || sequences[1].DealId != "deal-b" {
		t.Fatalf("unexpected deal order: %s, %s", sequences[0].DealId, sequences[1].DealId)
	}
	// Oldest-first within a deal, labels resolved to canonical keys.
	b := sequences[1]
	if len(b.Transitions) != 2 {
		t.Fatalf("expected 2 transitions for deal-b, got %d", len(b.Transitions))
	}
	if b.Transitions[0].ToStage != models.StageQualificacao || b.Transitions[1].ToStage != models.StageR1Agendada {
		t.Fatalf("transitions out of order or unnormalized: %+v", b.Transitions)
	}
	if b.Transitions[1].FromStage != models.StageQualificacao {
		t.Fatalf("display-name label not resolved: %q", b.Transitions[1].FromStage)
	}
}

func TestBuildSequences_TimestampTieBrokenById(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []models.DealActivity{
		activity(7, "deal-a", "qualificacao", "r1_agendada", at),
		activity(6, "deal-a", "novo_lead", "qualificacao", at),
	}

	sequences, _ := BuildSequences(events, models.DefaultStageCatalog())
	if len(sequences) != 1 {
		t.Fatalf("expected 1 sequence, got %d", len(sequences))
	}
	got := sequences[0].Transitions
	if got[0].ToStage != models.StageQualificacao || got[1].ToStage != models.StageR1Agendada {
		t.Fatalf("tie not broken by id: %+v", got)
	}
}

func TestBuildSequences_LegacyIdsResolve(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []models.DealActivity{
		activity(1, "deal-a", "etapa_103", "etapa_104", at),
	}

	sequences, skipped := BuildSequences(events, models.DefaultStageCatalog())
	if len(skipped) != 0 || len(sequences) != 1 {
		t.Fatalf("expected legacy ids to resolve, sequences=%d skipped=%v", len(sequences), skipped)
	}
	tr := sequences[0].Transitions[0]
	if tr.FromStage != models.StageR1Agendada || tr.ToStage != models.StageNoShow {
		t.Fatalf("legacy ids resolved wrong: %+v", tr)
	}
}

func TestBuildSequences_UnknownLabelSkipsWholeDeal(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []models.DealActivity{
		activity(1, "deal-a", "novo_lead", "qualificacao", at),
		activity(2, "deal-a", "qualificacao", "etapa_999", at.Add(time.Hour)),
		activity(3, "deal-b", "novo_lead", "qualificacao", at),
	}

	sequences, skipped := BuildSequences(events, models.DefaultStageCatalog())
	if len(skipped) != 1 || skipped[0] != "deal-a" {
		t.Fatalf("expected deal-a skipped, got %v", skipped)
	}
	if len(sequences) != 1 || sequences[0].DealId != "deal-b" {
		t.Fatalf("expected only deal-b to survive, got %+v", sequences)
	}
}

func TestBuildSequences_NonStageEventsIgnored(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	note := models.DealActivity{
		ID: 1, DealId: "deal-a", ActivityKind: "note_added", ToStage: "whatever", OccurredAt: at,
	}
	events := []models.DealActivity{
		note,
		activity(2, "deal-a", "novo_lead", "qualificacao", at.Add(time.Hour)),
	}

	sequences, skipped := BuildSequences(events, models.DefaultStageCatalog())
	if len(skipped) != 0 {
		t.Fatalf("expected no skips, got %v", skipped)
	}
	if len(sequences) != 1 || len(sequences[0].Transitions) != 1 {
		t.Fatalf("non stage-change event leaked into the sequence: %+v", sequences)
	}
}
