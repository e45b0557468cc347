package flow

// escalateOnEntry lists the steps that hand off to a human as soon as they
// are entered, before any required-field collection completes. Claims are
// time-sensitive; human requests and open-ended topics have nothing for the
// agent to collect through.
var escalateOnEntry = map[Step]bool{
	Step(TypeHumanRequest): true,
	Step(TypeClaim):        true,
	Step(TypeOther):        true,
}

// EscalatesOnEntry reports whether a flow hands off immediately, before any
// field collection.
func EscalatesOnEntry(t Type) bool {
	return escalateOnEntry[Step(t)]
}

// MissingFields returns the flow's required fields not yet filled, in
// registry (prompting) order.
func MissingFields(t Type, fields Fields) []string {
	required, ok := requiredFields[t]
	if !ok {
		return nil
	}
	var missing []string
	for _, name := range required {
		if !fields.Filled(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// IsComplete reports whether every required field for the flow is filled.
// A contact without a flow is never complete.
func IsComplete(t Type, fields Fields) bool {
	if !t.Valid() {
		return false
	}
	return len(MissingFields(t, fields)) == 0
}

// NextField returns the first still-missing required field, or "" when the
// flow is complete. The reply generator asks for exactly this datum.
func NextField(t Type, fields Fields) string {
	missing := MissingFields(t, fields)
	if len(missing) == 0 {
		return ""
	}
	return missing[0]
}

// ShouldEscalate decides, from post-update state only, whether the
// conversation must move to a human: either the step escalates
// unconditionally on entry, or the active flow collected everything it
// needs. Adding more filled fields can never flip this back to false.
func ShouldEscalate(step Step, t Type, fields Fields) bool {
	if escalateOnEntry[step] {
		return true
	}
	return IsComplete(t, fields)
}
