package models

import "strings"

// Canonical pipeline stage keys. Every classification rule works on these;
// raw CRM labels and legacy import ids are resolved through the StageCatalog.
const (
	StageNovoLead       = "novo_lead"
	StageQualificacao   = "qualificacao"
	StageR1Agendada     = "r1_agendada"
	StageNoShow         = "no_show"
	StageR1Realizada    = "r1_realizada"
	StageProposta       = "proposta"
	StageNegociacao     = "negociacao"
	StageFechadoGanho   = "fechado_ganho"
	StageFechadoPerdido = "fechado_perdido"
)

// StageDefinition describes one canonical stage: its display name, its rank
// in the funnel (used by the regression rule) and the aliases under which it
// arrives from the CRM and the legacy import.
type StageDefinition struct {
	Key         string
	DisplayName string
	FunnelOrder int
	Aliases     []string
}

// StageCatalog is the injected lookup table replacing the legacy global
// label maps. It owns the canonical stage definitions and an alias index so
// the sequencer can be tested in isolation with a purpose-built catalog.
type StageCatalog struct {
	byAlias map[string]*StageDefinition
	defs    []StageDefinition
}

func NewStageCatalog(defs []StageDefinition) *StageCatalog {
	c := &StageCatalog{
		byAlias: make(map[string]*StageDefinition),
		defs:    defs,
	}
	for i := range c.defs {
		def := &c.defs[i]
		c.byAlias[normalizeLabel(def.Key)] = def
		c.byAlias[normalizeLabel(def.DisplayName)] = def
		for _, alias := range def.Aliases {
			c.byAlias[normalizeLabel(alias)] = def
		}
	}
	return c
}

// Normalize resolves a raw stage label (display name, canonical key or legacy
// identifier) to its canonical key.
func (c *StageCatalog) Normalize(label string) (string, bool) {
	def, ok := c.byAlias[normalizeLabel(label)]
	if !ok {
		return "", false
	}
	return def.Key, true
}

// FunnelOrder returns the funnel rank of a canonical stage key. Higher means
// further down the funnel. no_show carries the rank of the stage it interrupts
// so a move into it never counts as a regression on its own.
func (c *StageCatalog) FunnelOrder(key string) (int, bool) {
	def, ok := c.byAlias[normalizeLabel(key)]
	if !ok {
		return 0, false
	}
	return def.FunnelOrder, true
}

func (c *StageCatalog) Definitions() []StageDefinition {
	return c.defs
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// DefaultStageCatalog mirrors the production pipeline. The legacy ids
// (etapa_NNN) come from the 2023 CRM import and still appear on old events.
func DefaultStageCatalog() *StageCatalog {
	return NewStageCatalog([]StageDefinition{
		{Key: StageNovoLead, DisplayName: "Novo Lead", FunnelOrder: 1, Aliases: []string{"etapa_101", "lead novo", "new lead"}},
		{Key: StageQualificacao, DisplayName: "Qualificação", FunnelOrder: 2, Aliases: []string{"etapa_102", "qualificacao", "em qualificação"}},
		{Key: StageR1Agendada, DisplayName: "R1 Agendada", FunnelOrder: 3, Aliases: []string{"etapa_103", "r1 agendada", "reuniao agendada", "meeting scheduled"}},
		{Key: StageNoShow, DisplayName: "No-Show", FunnelOrder: 3, Aliases: []string{"etapa_104", "no show", "noshow", "não compareceu"}},
		{Key: StageR1Realizada, DisplayName: "R1 Realizada", FunnelOrder: 4, Aliases: []string{"etapa_105", "r1 realizada", "reuniao realizada", "meeting done"}},
		{Key: StageProposta, DisplayName: "Proposta Enviada", FunnelOrder: 5, Aliases: []string{"etapa_106", "proposta"}},
		{Key: StageNegociacao, DisplayName: "Negociação", FunnelOrder: 6, Aliases: []string{"etapa_107", "negociacao"}},
		{Key: StageFechadoGanho, DisplayName: "Fechado Ganho", FunnelOrder: 7, Aliases: []string{"etapa_108", "ganho", "won"}},
		{Key: StageFechadoPerdido, DisplayName: "Fechado Perdido", FunnelOrder: 7, Aliases: []string{"etapa_109", "perdido", "lost"}},
	})
}
