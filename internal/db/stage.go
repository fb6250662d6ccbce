package db

import "strings"

// Stage is the CRM pipeline stage of an opportunity.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageViajado
	StageConfirmado
	StagePropuestaEnviada
	StageLeads
	StageStandBy
	StageFUP1
	StageFUP2
	StageFUP3
	StageFUP4
	StageFUP5
	StagePaquetes
	StageBloqueado
	StageCancelado
	StageArmandoPropuesta
)

var stageLabels = map[Stage]string{
	StageViajado:          "VIAJADO",
	StageConfirmado:       "CONFIRMADO",
	StagePropuestaEnviada: "PROPUESTA ENVIADA",
	StageLeads:            "LEADS",
	StageStandBy:          "STAND BY / POSPUESTO",
	StageFUP1:             "1º FUP",
	StageFUP2:             "2º FUP",
	StageFUP3:             "3º FUP",
	StageFUP4:             "4º FUP",
	StageFUP5:             "5º FUP",
	StagePaquetes:         "PAQUETES",
	StageBloqueado:        "BLOQUEADO",
	StageCancelado:        "CANCELADO",
	StageArmandoPropuesta: "ARMANDO PROPUESTA",
}

var stageByLabel = func() map[string]Stage {
	m := make(map[string]Stage, len(stageLabels))
	for s, l := range stageLabels {
		m[l] = s
	}
	return m
}()

// Stages returns the known stages in declaration order.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageLabels))
	for s := StageViajado; s <= StageArmandoPropuesta; s++ {
		out = append(out, s)
	}
	return out
}

func (s Stage) String() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "UNKNOWN"
}

func (s Stage) Known() bool { return s != StageUnknown }

// ParseStage porównuje bez względu na wielkość liter i spacje na brzegach.
// "1° FUP" (znak stopnia) traktujemy jak "1º FUP".
func ParseStage(raw string) Stage {
	l := strings.ToUpper(strings.TrimSpace(raw))
	l = strings.ReplaceAll(l, "°", "º")
	if s, ok := stageByLabel[l]; ok {
		return s
	}
	return StageUnknown
}
