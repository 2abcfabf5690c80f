package shaderpack

import "strings"

// PassStage is the step of the frame a pass runs in.
type PassStage int

const (
	StageNone PassStage = iota
	StageShadow
	StageGBuffer
	StageComposite
	StageFinal
	StageGUI
)

var passStageNames = [...]string{"none", "shadow", "gbuffer", "composite", "final", "gui"}

func (s PassStage) String() string {
	if s < 0 || int(s) >= len(passStageNames) {
		return passStageNames[StageNone]
	}
	return passStageNames[s]
}

// StageRule assigns a stage to pass names with a prefix, or to one name
// exactly when Exact is set.
type StageRule struct {
	Prefix string
	Exact  bool
	Stage  PassStage
}

// StageRules maps pass names to stages. The first matching rule wins.
type StageRules []StageRule

// GUIPass is the name of the program the GUI pass draws with.
const GUIPass = "gui"

// DefaultStageRules keeps the pass names shaderpacks have always used.
var DefaultStageRules = StageRules{
	{Prefix: GUIPass, Exact: true, Stage: StageGUI},
	{Prefix: "shadow", Stage: StageShadow},
	{Prefix: "gbuffers_", Stage: StageGBuffer},
	{Prefix: "composite", Stage: StageComposite},
	{Prefix: "final", Stage: StageFinal},
}

// Classify returns the stage of a pass name, StageNone when no rule matches.
func (r StageRules) Classify(name string) PassStage {
	for _, rule := range r {
		if rule.Exact && name == rule.Prefix {
			return rule.Stage
		}
		if !rule.Exact && strings.HasPrefix(name, rule.Prefix) {
			return rule.Stage
		}
	}
	return StageNone
}
