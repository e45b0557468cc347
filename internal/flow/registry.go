package flow

// Type identifies a conversational flow. The empty value means the contact
// is still at the top-level menu and no product track has been chosen.
type Type string

const (
	TypeAuto             Type = "seguro_auto"
	TypeHome             Type = "seguro_residencial"
	TypeLife             Type = "seguro_vida"
	TypeBusiness         Type = "seguro_empresarial"
	TypeConsortium       Type = "consorcio"
	TypeDuplicateInvoice Type = "segunda_via"
	TypeClaim            Type = "sinistro"
	TypeHumanRequest     Type = "falar_humano"
	TypeOther            Type = "outros_assuntos"
)

// Step is the contact's position in the menu/flow state machine. Once a
// concrete flow is entered the step equals the flow type.
type Step string

const (
	StepMenu                  Step = "menu"
	StepChoosingInsuranceType Step = "escolhendo_tipo_seguro"
)

// Field names shared across flow schemas.
const (
	FieldName                  = "name"
	FieldCPFCNPJ               = "cpf_cnpj"
	FieldVehiclePlate          = "vehicle_plate"
	FieldPhone                 = "phone"
	FieldWhatsAppContact       = "whatsapp_contact"
	FieldEmail                 = "email"
	FieldSecondEmail           = "second_email"
	FieldCEPPernoite           = "cep_pernoite"
	FieldProfession            = "profession"
	FieldMaritalStatus         = "marital_status"
	FieldVehicleUsage          = "vehicle_usage"
	FieldHasYoungDriver        = "has_young_driver"
	FieldPropertyCEP           = "property_cep"
	FieldPropertyType          = "property_type"
	FieldPropertyValue         = "property_value"
	FieldPropertyOwnership     = "property_ownership"
	FieldConsortiumType        = "consortium_type"
	FieldConsortiumValue       = "consortium_value"
	FieldConsortiumTerm        = "consortium_term"
	FieldHasPreviousConsortium = "has_previous_consortium"
	FieldObservations          = "observations"
)

// FieldKind selects the validator applied to a field value at the merge
// boundary.
type FieldKind int

const (
	KindFreeText FieldKind = iota
	KindCPF
	KindCNPJ
	KindCPFOrCNPJ
	KindPlate
	KindPhone
	KindCEP
	KindYesNo
)

// fieldSpec describes one named datum: its prompt label, its validator, and
// whether a later non-empty extraction may overwrite an already-filled
// value. Validated identifier kinds are write-once.
type fieldSpec struct {
	Label       string
	Kind        FieldKind
	Correctable bool
}

var fieldSpecs = map[string]fieldSpec{
	FieldName:                  {Label: "Nome", Kind: KindFreeText, Correctable: true},
	FieldCPFCNPJ:               {Label: "CPF ou CNPJ", Kind: KindCPFOrCNPJ},
	FieldVehiclePlate:          {Label: "Placa do veículo", Kind: KindPlate},
	FieldPhone:                 {Label: "Telefone", Kind: KindPhone},
	FieldWhatsAppContact:       {Label: "WhatsApp", Kind: KindPhone},
	FieldEmail:                 {Label: "E-mail", Kind: KindFreeText, Correctable: true},
	FieldSecondEmail:           {Label: "Segundo e-mail", Kind: KindFreeText, Correctable: true},
	FieldCEPPernoite:           {Label: "CEP de pernoite do veículo", Kind: KindCEP},
	FieldProfession:            {Label: "Profissão", Kind: KindFreeText, Correctable: true},
	FieldMaritalStatus:         {Label: "Estado civil", Kind: KindFreeText, Correctable: true},
	FieldVehicleUsage:          {Label: "Uso do veículo", Kind: KindFreeText, Correctable: true},
	FieldHasYoungDriver:        {Label: "Condutor menor de 26 anos", Kind: KindYesNo, Correctable: true},
	FieldPropertyCEP:           {Label: "CEP do imóvel", Kind: KindCEP},
	FieldPropertyType:          {Label: "Tipo de imóvel", Kind: KindFreeText, Correctable: true},
	FieldPropertyValue:         {Label: "Valor aproximado", Kind: KindFreeText, Correctable: true},
	FieldPropertyOwnership:     {Label: "Próprio ou alugado", Kind: KindFreeText, Correctable: true},
	FieldConsortiumType:        {Label: "Tipo de consórcio", Kind: KindFreeText, Correctable: true},
	FieldConsortiumValue:       {Label: "Valor da carta de crédito", Kind: KindFreeText, Correctable: true},
	FieldConsortiumTerm:        {Label: "Prazo", Kind: KindFreeText, Correctable: true},
	FieldHasPreviousConsortium: {Label: "Já participou de consórcio antes", Kind: KindYesNo, Correctable: true},
	FieldObservations:          {Label: "Observações", Kind: KindFreeText, Correctable: true},
}

// requiredFields lists, in prompting order, the fields each flow must
// collect before it is complete. Identity fields come first so prompts ask
// for the most structurally important datum first. Flows absent from this
// table (falar_humano) collect nothing before hand-off.
var requiredFields = map[Type][]string{
	TypeAuto: {
		FieldCPFCNPJ, FieldVehiclePlate, FieldPhone, FieldCEPPernoite,
		FieldProfession, FieldMaritalStatus, FieldVehicleUsage, FieldHasYoungDriver,
	},
	TypeHome: {
		FieldName, FieldPhone, FieldPropertyCEP, FieldPropertyType,
		FieldPropertyValue, FieldPropertyOwnership,
	},
	TypeLife: {
		FieldName, FieldCPFCNPJ, FieldPhone, FieldProfession,
	},
	TypeBusiness: {
		FieldName, FieldCPFCNPJ, FieldPhone, FieldEmail,
	},
	TypeConsortium: {
		FieldCPFCNPJ, FieldPhone, FieldWhatsAppContact, FieldEmail,
		FieldConsortiumType, FieldConsortiumValue, FieldConsortiumTerm,
	},
	TypeDuplicateInvoice: {
		FieldCPFCNPJ, FieldName, FieldEmail,
	},
	TypeClaim: {
		FieldName, FieldPhone,
	},
	TypeOther: {
		FieldName,
	},
}

// RequiredFields returns the ordered required-field list for a flow. The
// returned slice is a copy; callers may not mutate registry state.
func RequiredFields(t Type) []string {
	fields, ok := requiredFields[t]
	if !ok {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// FieldLabel returns the human-readable Portuguese label for a field name,
// falling back to the technical name for unknown fields.
func FieldLabel(name string) string {
	if spec, ok := fieldSpecs[name]; ok {
		return spec.Label
	}
	return name
}

// KnownField reports whether name is part of the union schema.
func KnownField(name string) bool {
	_, ok := fieldSpecs[name]
	return ok
}

// Valid reports whether t is a registered flow type.
func (t Type) Valid() bool {
	switch t {
	case TypeAuto, TypeHome, TypeLife, TypeBusiness, TypeConsortium,
		TypeDuplicateInvoice, TypeClaim, TypeHumanRequest, TypeOther:
		return true
	}
	return false
}
