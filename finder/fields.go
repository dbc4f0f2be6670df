package finder

import "github.com/saudraja/ollama-ai-scrapper/strategy"

// FieldSpec describes what a logical field is for, independent of its
// current markup. The interaction kind drives element validation, the
// keywords feed the repair generators, and AIEligible gates the AI
// generator for fields too sensitive or too trivial to send out.
type FieldSpec struct {
	Interaction strategy.Interaction `yaml:"interaction"`
	Keywords    []string             `yaml:"keywords"`
	AIEligible  *bool                `yaml:"ai_eligible"` // nil means eligible
}

func (fs FieldSpec) aiEligible() bool {
	return fs.AIEligible == nil || *fs.AIEligible
}

// specFor returns the spec for a field, falling back to a fillable field
// with no keywords when the field was never described.
func specFor(fields map[string]FieldSpec, field string) FieldSpec {
	if fs, ok := fields[field]; ok {
		return fs
	}
	return FieldSpec{Interaction: strategy.InteractFill}
}
