package guideline

import (
	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
)

// Treatment step definitions with their guideline citation tags. Steps are
// shared between subtype plans; the plan table below fixes the order.
var (
	stepArtificialTears = domain.TreatmentStep{Intervention: "Preservative-free artificial tears 4-6x daily", Citation: "DEWS3-MGMT-1.1"}
	stepLidHygiene      = domain.TreatmentStep{Intervention: "Lid hygiene and warm compresses 10 min daily", Citation: "DEWS3-MGMT-1.2"}
	stepEnvironment     = domain.TreatmentStep{Intervention: "Environmental modification (humidifier, avoid drafts, screen breaks)", Citation: "DEWS3-MGMT-1.3"}
	stepOmega3          = domain.TreatmentStep{Intervention: "Omega-3 fatty acid supplementation 2000 mg daily", Citation: "DEWS3-MGMT-1.4"}
	stepBlinkExercises  = domain.TreatmentStep{Intervention: "Blink exercises during digital device use", Citation: "DEWS3-MGMT-1.5"}

	stepFrequentTears   = domain.TreatmentStep{Intervention: "Preservative-free artificial tears 6-8x daily", Citation: "DEWS3-MGMT-2.1"}
	stepLipidLubricant  = domain.TreatmentStep{Intervention: "Lipid-based lubricant at night", Citation: "DEWS3-MGMT-2.2"}
	stepLidMassage      = domain.TreatmentStep{Intervention: "Warm compresses with lid massage 2x daily", Citation: "DEWS3-MGMT-2.3"}
	stepImmunomodulator = domain.TreatmentStep{Intervention: "Topical cyclosporine 0.05% or lifitegrast 5% twice daily", Citation: "DEWS3-MGMT-2.4"}
	stepPunctalPlugs    = domain.TreatmentStep{Intervention: "Punctal plugs for aqueous retention", Citation: "DEWS3-MGMT-2.5"}
	stepDoxycycline     = domain.TreatmentStep{Intervention: "Oral doxycycline 50 mg daily for meibomian gland dysfunction (3-month course)", Citation: "DEWS3-MGMT-2.6"}

	stepIntensiveLubrication = domain.TreatmentStep{Intervention: "Intensive lubrication regimen (hourly if needed)", Citation: "DEWS3-MGMT-3.1"}
	stepPunctalOcclusion     = domain.TreatmentStep{Intervention: "Punctal occlusion (temporary, then permanent)", Citation: "DEWS3-MGMT-3.2"}
	stepCorticosteroid       = domain.TreatmentStep{Intervention: "Short-term topical corticosteroid course, monitored", Citation: "DEWS3-MGMT-3.3"}
	stepSerumTears           = domain.TreatmentStep{Intervention: "Autologous serum tears 4-6x daily", Citation: "DEWS3-MGMT-3.4"}
	stepIPL                  = domain.TreatmentStep{Intervention: "Intense pulsed light therapy for meibomian gland dysfunction", Citation: "DEWS3-MGMT-3.5"}

	stepScleralLenses = domain.TreatmentStep{Intervention: "Scleral contact lenses for severe surface disease", Citation: "DEWS3-MGMT-4.1"}
	stepSpecialist    = domain.TreatmentStep{Intervention: "Referral to dry eye specialist for advanced management", Citation: "DEWS3-MGMT-4.2"}
)

// AntiInflammatoryModifier is appended to a plan when the staining axis
// contributed to the classification (significant ocular surface damage).
var AntiInflammatoryModifier = domain.TreatmentStep{
	Intervention: "Anti-inflammatory therapy as primary treatment modality",
	Citation:     "DEWS3-MGMT-INF",
}

// IndeterminatePlan is the fixed plan for indeterminate classifications.
// It must contain no therapeutic step.
var IndeterminatePlan = []domain.TreatmentStep{
	{Intervention: "Insufficient classification - repeat tear film measurement battery", Citation: "DEWS3-DX-REPEAT"},
	{Intervention: "Re-evaluate in 2-4 weeks with complete staining panel", Citation: "DEWS3-DX-REPEAT"},
}

// TreatmentPlans is the deterministic lookup table keyed by subtype and
// severity stage. Each entry is a complete ordered step list, not a delta
// over the previous stage, so a single lookup fully determines the plan.
var TreatmentPlans = map[domain.Subtype]map[domain.SeverityStage][]domain.TreatmentStep{
	domain.AQUEOUS_DEFICIENT: {
		domain.STAGE_1: {stepArtificialTears, stepEnvironment, stepBlinkExercises},
		domain.STAGE_2: {stepFrequentTears, stepLipidLubricant, stepPunctalPlugs, stepEnvironment},
		domain.STAGE_3: {stepIntensiveLubrication, stepPunctalOcclusion, stepImmunomodulator, stepCorticosteroid},
		domain.STAGE_4: {stepIntensiveLubrication, stepSerumTears, stepPunctalOcclusion, stepScleralLenses, stepSpecialist},
	},
	domain.EVAPORATIVE: {
		domain.STAGE_1: {stepLidHygiene, stepOmega3, stepBlinkExercises, stepEnvironment},
		domain.STAGE_2: {stepLidMassage, stepLipidLubricant, stepDoxycycline, stepOmega3},
		domain.STAGE_3: {stepLidMassage, stepImmunomodulator, stepIPL, stepCorticosteroid},
		domain.STAGE_4: {stepIPL, stepSerumTears, stepScleralLenses, stepSpecialist},
	},
	domain.MIXED: {
		domain.STAGE_1: {stepArtificialTears, stepLidHygiene, stepOmega3, stepEnvironment},
		domain.STAGE_2: {stepFrequentTears, stepLidMassage, stepPunctalPlugs, stepDoxycycline},
		domain.STAGE_3: {stepIntensiveLubrication, stepPunctalOcclusion, stepImmunomodulator, stepIPL},
		domain.STAGE_4: {stepSerumTears, stepPunctalOcclusion, stepIPL, stepScleralLenses, stepSpecialist},
	},
}

// PlanFor returns the ordered step list for a therapeutic subtype and stage.
// The second return value is false when no entry exists (e.g. indeterminate
// subtype, which callers must route to IndeterminatePlan).
func PlanFor(subtype domain.Subtype, stage domain.SeverityStage) ([]domain.TreatmentStep, bool) {
	stages, ok := TreatmentPlans[subtype]
	if !ok {
		return nil, false
	}
	steps, ok := stages[stage]
	return steps, ok
}
