package models

// Mode represents a named, fixed pipeline of sub-stages selected for a job.
type Mode string

const (
	// ModeRapid is a single fast implementation pass with no review.
	ModeRapid Mode = "rapid"
	// ModeCode is the default implement-then-test pipeline.
	ModeCode Mode = "code"
	// ModeQuality adds review and test generation to implementation.
	ModeQuality Mode = "quality"
	// ModeFullCycle is the complete implement/review/test/document pipeline.
	ModeFullCycle Mode = "full_cycle"
	// ModeTesting generates and hardens tests for existing code.
	ModeTesting Mode = "testing"
	// ModeDocumentation writes or updates documentation.
	ModeDocumentation Mode = "documentation"
	// ModeDebug investigates and fixes a defect.
	ModeDebug Mode = "debug"
	// ModeAnalysis inspects code or data and reports findings.
	ModeAnalysis Mode = "analysis"
	// ModeReview reviews existing changes without modifying them.
	ModeReview Mode = "review"
	// ModeResearch explores a question and summarizes what it finds.
	ModeResearch Mode = "research"
)

// Stage identifies one step of a mode pipeline.
type Stage string

const (
	StageImplementation Stage = "implementation"
	StageReview         Stage = "review"
	StageTestGen        Stage = "test_generation"
	StageDocumentation  Stage = "documentation"
	StageInvestigation  Stage = "investigation"
	StageFix            Stage = "fix"
	StageVerification   Stage = "verification"
	StageExploration    Stage = "exploration"
	StageSummary        Stage = "summary"
)

// modePipelines maps each mode to its fixed, ordered stage sequence.
// Ordering is part of the contract: each stage's output is fed to the next.
var modePipelines = map[Mode][]Stage{
	ModeRapid:         {StageImplementation},
	ModeCode:          {StageImplementation, StageTestGen},
	ModeQuality:       {StageImplementation, StageReview, StageTestGen},
	ModeFullCycle:     {StageImplementation, StageReview, StageTestGen, StageDocumentation},
	ModeTesting:       {StageTestGen, StageVerification},
	ModeDocumentation: {StageDocumentation},
	ModeDebug:         {StageInvestigation, StageFix, StageVerification},
	ModeAnalysis:      {StageExploration, StageSummary},
	ModeReview:        {StageReview, StageSummary},
	ModeResearch:      {StageExploration, StageSummary},
}

// AllModes lists every known mode.
func AllModes() []Mode {
	return []Mode{
		ModeRapid, ModeCode, ModeQuality, ModeFullCycle, ModeTesting,
		ModeDocumentation, ModeDebug, ModeAnalysis, ModeReview, ModeResearch,
	}
}

// Valid returns true if the mode is a known value.
func (m Mode) Valid() bool {
	_, ok := modePipelines[m]
	return ok
}

// Stages returns the fixed stage pipeline for the mode. The returned slice is
// a copy; callers may not mutate the pipeline.
func (m Mode) Stages() []Stage {
	stages, ok := modePipelines[m]
	if !ok {
		return nil
	}
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}
