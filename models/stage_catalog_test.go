package models

import "testing"

func TestStageCatalog_NormalizeAliases(t *testing.T) {
	catalog := DefaultStageCatalog()
	cases := []struct {
		label string
		want  string
	}{
		{"r1_agendada", StageR1Agendada},
		{"R1 Agendada", StageR1Agendada},
		{"  Meeting Scheduled ", StageR1Agendada},
		{"etapa_103", StageR1Agendada},
		{"etapa_104", StageNoShow},
		{"não compareceu", StageNoShow},
		{"Novo Lead", StageNovoLead},
		{"WON", StageFechadoGanho},
	}
	for _, tc := range cases {
		got, ok := catalog.Normalize(tc.label)
		if !ok {
			t.Fatalf("label %q did not resolve", tc.label)
		}
		if got != tc.want {
			t.Fatalf("label %q: want %s, got %s", tc.label, tc.want, got)
		}
	}
}

func TestStageCatalog_UnknownLabel(t *testing.T) {
	catalog := DefaultStageCatalog()
	if _, ok := catalog.Normalize("etapa_999"); ok {
		t.Fatal("unknown legacy id should not resolve")
	}
	if _, ok := catalog.Normalize(""); ok {
		t.Fatal("empty label should not resolve")
	}
}

func TestStageCatalog_FunnelOrder(t *testing.T) {
	catalog := DefaultStageCatalog()

	lead, _ := catalog.FunnelOrder(StageNovoLead)
	scheduled, _ := catalog.FunnelOrder(StageR1Agendada)
	won, _ := catalog.FunnelOrder(StageFechadoGanho)
	if !(lead < scheduled && scheduled < won) {
		t.Fatalf("funnel order broken: lead=%d scheduled=%d won=%d", lead, scheduled, won)
	}

	// no_show shares the scheduled stage's rank so moving into it is never a
	// regression on its own.
	noShow, ok := catalog.FunnelOrder(StageNoShow)
	if !ok || noShow != scheduled {
		t.Fatalf("no_show should share the scheduled rank, got %d vs %d", noShow, scheduled)
	}
}
