package flow

import (
	"context"
	"strings"
)

// State is the flow position and accumulated record for one contact. It is
// a value type: Advance returns a new State and never mutates its input, so
// identical inputs always produce identical outputs.
type State struct {
	Type              Type   `json:"flow_type,omitempty"`
	Step              Step   `json:"flow_step"`
	Fields            Fields `json:"fields"`
	AutomationEnabled bool   `json:"automation_enabled"`
}

// NewState returns the initial state for a freshly created contact.
func NewState() State {
	return State{Step: StepMenu, AutomationEnabled: true}
}

// InFlow reports whether the contact has entered a concrete flow.
func (s State) InFlow() bool {
	return s.Type != "" && s.Step == Step(s.Type)
}

// ExtractFunc produces a best-effort field-name to value mapping from the
// conversation history, scoped to one flow's schema. Implementations may
// block on network calls; a failed extraction must surface as an error so
// the machine can treat the turn as "nothing extracted".
type ExtractFunc func(ctx context.Context, flowType Type, schema []string) (map[string]string, error)

// extracted values that mean "the model does not know" and must never be
// written into the record.
var placeholderValues = map[string]bool{
	"unknown": true, "null": true, "none": true, "n/a": true,
	"nao informado": true, "não informado": true, "desconhecido": true,
}

// Advance applies one inbound message to the state: menu/sub-menu routing,
// restart handling, consortium sub-selection, then extraction and monotonic
// field merge. It is the only code allowed to move Step/Type or write
// Fields.
//
// When automation is disabled the state is returned untouched; a human owns
// the conversation and the machine must not interfere.
func Advance(ctx context.Context, state State, text string, extract ExtractFunc) State {
	if !state.AutomationEnabled {
		return state
	}

	choice := DetectMenuChoice(text)

	// Restart is reachable from every step. Flow position resets but
	// already-collected fields are kept.
	if choice == MenuRestart {
		state.Type = ""
		state.Step = StepMenu
		return state
	}

	switch state.Step {
	case StepMenu:
		switch choice {
		case MenuNone:
			// Stay; the orchestrator re-issues the menu prompt.
		case MenuInsurance:
			state.Step = StepChoosingInsuranceType
		default:
			t := Type(choice)
			state.Type = t
			state.Step = Step(t)
		}
	case StepChoosingInsuranceType:
		if t := DetectInsuranceType(text); t != "" {
			state.Type = t
			state.Step = Step(t)
		}
	default:
		// Already inside a flow. The consortium flow has one secondary
		// sub-selection stored as a field, not a step transition.
		if state.Type == TypeConsortium && !state.Fields.Filled(FieldConsortiumType) {
			if ct := DetectConsortiumType(text); ct != "" {
				state.Fields.Set(FieldConsortiumType, ct)
			}
		}
	}

	if state.Type == "" {
		return state
	}

	// Deterministic fill: the agent asks exactly one datum per turn, so a
	// validated match against the first missing field of an atomic kind is
	// the customer answering that question. Free-text fields are left to
	// the extractor to avoid swallowing arbitrary prose.
	state.Fields = fillFromMessage(state.Type, state.Fields, text)

	if extract != nil {
		values, err := extract(ctx, state.Type, RequiredFields(state.Type))
		if err == nil {
			state.Fields = mergeExtracted(state.Fields, values)
		}
	}

	return state
}

func fillFromMessage(t Type, fields Fields, text string) Fields {
	for _, name := range requiredFields[t] {
		if fields.Filled(name) {
			continue
		}
		spec := fieldSpecs[name]
		if spec.Kind == KindFreeText {
			return fields
		}
		if value, ok := ExtractField(text, spec.Kind); ok {
			fields.Set(name, value)
		}
		return fields
	}
	return fields
}

// mergeExtracted folds extractor output into the record under the
// monotonic-fill rule: empty fields are filled with validated values;
// filled fields are overwritten only when the field is correction-eligible
// and the value actually changed. Write-once identifier fields are never
// replaced by a re-extraction.
func mergeExtracted(fields Fields, values map[string]string) Fields {
	for name, raw := range values {
		spec, known := fieldSpecs[name]
		if !known {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || placeholderValues[strings.ToLower(raw)] {
			continue
		}
		value, ok := ExtractField(raw, spec.Kind)
		if !ok {
			continue
		}
		current := fields.Get(name)
		switch {
		case current == "":
			fields.Set(name, value)
		case spec.Correctable && value != current:
			fields.Set(name, value)
		}
	}
	return fields
}
