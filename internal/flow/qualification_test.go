package flow

import (
	"reflect"
	"testing"
)

func TestMissingFields_Order(t *testing.T) {
	var fields Fields
	fields.Set(FieldVehiclePlate, "ABC1234")
	fields.Set(FieldProfession, "engenheiro")

	got := MissingFields(TypeAuto, fields)
	want := []string{
		FieldCPFCNPJ, FieldPhone, FieldCEPPernoite,
		FieldMaritalStatus, FieldVehicleUsage, FieldHasYoungDriver,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingFields = %v, want %v", got, want)
	}
}

func TestIsComplete_FillOrderIndependent(t *testing.T) {
	required := RequiredFields(TypeConsortium)

	// Same field set filled in two different orders must agree.
	forward := Fields{}
	for _, name := range required {
		forward.Set(name, "x1234567890")
	}
	backward := Fields{}
	for i := len(required) - 1; i >= 0; i-- {
		backward.Set(required[i], "x1234567890")
	}

	if !IsComplete(TypeConsortium, forward) {
		t.Error("forward fill not complete")
	}
	if !IsComplete(TypeConsortium, backward) {
		t.Error("backward fill not complete")
	}
}

func TestIsComplete(t *testing.T) {
	var fields Fields
	if IsComplete(TypeAuto, fields) {
		t.Error("empty record reported complete")
	}
	if IsComplete("", fields) {
		t.Error("contact without a flow reported complete")
	}
	if IsComplete(Type("inexistente"), fields) {
		t.Error("unknown flow reported complete")
	}

	// falar_humano collects nothing, so any record completes it.
	if !IsComplete(TypeHumanRequest, fields) {
		t.Error("falar_humano with no fields not complete")
	}

	fields.Set(FieldName, "Maria")
	if !IsComplete(TypeOther, fields) {
		t.Error("outros_assuntos with name not complete")
	}
}

func TestNextField(t *testing.T) {
	var fields Fields
	if got := NextField(TypeAuto, fields); got != FieldCPFCNPJ {
		t.Errorf("NextField = %q, want %q", got, FieldCPFCNPJ)
	}
	fields.Set(FieldCPFCNPJ, "12345678900")
	if got := NextField(TypeAuto, fields); got != FieldVehiclePlate {
		t.Errorf("NextField = %q, want %q", got, FieldVehiclePlate)
	}
	for _, name := range RequiredFields(TypeAuto) {
		fields.Set(name, "valor")
	}
	if got := NextField(TypeAuto, fields); got != "" {
		t.Errorf("NextField on complete flow = %q, want empty", got)
	}
}

func TestShouldEscalate_OnEntry(t *testing.T) {
	var fields Fields
	for _, flowType := range []Type{TypeHumanRequest, TypeClaim, TypeOther} {
		if !ShouldEscalate(Step(flowType), flowType, fields) {
			t.Errorf("%s did not escalate on entry", flowType)
		}
	}
	if ShouldEscalate(Step(TypeAuto), TypeAuto, fields) {
		t.Error("seguro_auto escalated with empty record")
	}
	if ShouldEscalate(StepMenu, "", fields) {
		t.Error("menu step escalated")
	}
}

func TestShouldEscalate_Monotonic(t *testing.T) {
	// Once a flow completes, filling more data can never undo escalation.
	fields := Fields{}
	for _, name := range RequiredFields(TypeClaim) {
		fields.Set(name, "valor1234567")
	}
	if !ShouldEscalate(Step(TypeClaim), TypeClaim, fields) {
		t.Fatal("complete claim flow did not escalate")
	}
	fields.Set(FieldObservations, "mais contexto sobre o sinistro")
	if !ShouldEscalate(Step(TypeClaim), TypeClaim, fields) {
		t.Error("extra field flipped escalation off")
	}
}
