package flow

// Fields is the typed accumulating record for one contact. It is the union
// of every flow schema; each field is optional and the zero value means
// "not collected yet". Yes/no fields hold the canonical tokens "sim"/"nao".
type Fields struct {
	Name                  string `json:"name,omitempty"`
	CPFCNPJ               string `json:"cpf_cnpj,omitempty"`
	VehiclePlate          string `json:"vehicle_plate,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	WhatsAppContact       string `json:"whatsapp_contact,omitempty"`
	Email                 string `json:"email,omitempty"`
	SecondEmail           string `json:"second_email,omitempty"`
	CEPPernoite           string `json:"cep_pernoite,omitempty"`
	Profession            string `json:"profession,omitempty"`
	MaritalStatus         string `json:"marital_status,omitempty"`
	VehicleUsage          string `json:"vehicle_usage,omitempty"`
	HasYoungDriver        string `json:"has_young_driver,omitempty"`
	PropertyCEP           string `json:"property_cep,omitempty"`
	PropertyType          string `json:"property_type,omitempty"`
	PropertyValue         string `json:"property_value,omitempty"`
	PropertyOwnership     string `json:"property_ownership,omitempty"`
	ConsortiumType        string `json:"consortium_type,omitempty"`
	ConsortiumValue       string `json:"consortium_value,omitempty"`
	ConsortiumTerm        string `json:"consortium_term,omitempty"`
	HasPreviousConsortium string `json:"has_previous_consortium,omitempty"`
	Observations          string `json:"observations,omitempty"`
}

// Get returns the current value for a field name, or "" when the field is
// unset or unknown.
func (f Fields) Get(name string) string {
	switch name {
	case FieldName:
		return f.Name
	case FieldCPFCNPJ:
		return f.CPFCNPJ
	case FieldVehiclePlate:
		return f.VehiclePlate
	case FieldPhone:
		return f.Phone
	case FieldWhatsAppContact:
		return f.WhatsAppContact
	case FieldEmail:
		return f.Email
	case FieldSecondEmail:
		return f.SecondEmail
	case FieldCEPPernoite:
		return f.CEPPernoite
	case FieldProfession:
		return f.Profession
	case FieldMaritalStatus:
		return f.MaritalStatus
	case FieldVehicleUsage:
		return f.VehicleUsage
	case FieldHasYoungDriver:
		return f.HasYoungDriver
	case FieldPropertyCEP:
		return f.PropertyCEP
	case FieldPropertyType:
		return f.PropertyType
	case FieldPropertyValue:
		return f.PropertyValue
	case FieldPropertyOwnership:
		return f.PropertyOwnership
	case FieldConsortiumType:
		return f.ConsortiumType
	case FieldConsortiumValue:
		return f.ConsortiumValue
	case FieldConsortiumTerm:
		return f.ConsortiumTerm
	case FieldHasPreviousConsortium:
		return f.HasPreviousConsortium
	case FieldObservations:
		return f.Observations
	}
	return ""
}

// Set writes a value for a field name and reports whether the name is part
// of the union schema. Set performs no validation or overwrite policy; that
// belongs to the state machine's merge.
func (f *Fields) Set(name, value string) bool {
	switch name {
	case FieldName:
		f.Name = value
	case FieldCPFCNPJ:
		f.CPFCNPJ = value
	case FieldVehiclePlate:
		f.VehiclePlate = value
	case FieldPhone:
		f.Phone = value
	case FieldWhatsAppContact:
		f.WhatsAppContact = value
	case FieldEmail:
		f.Email = value
	case FieldSecondEmail:
		f.SecondEmail = value
	case FieldCEPPernoite:
		f.CEPPernoite = value
	case FieldProfession:
		f.Profession = value
	case FieldMaritalStatus:
		f.MaritalStatus = value
	case FieldVehicleUsage:
		f.VehicleUsage = value
	case FieldHasYoungDriver:
		f.HasYoungDriver = value
	case FieldPropertyCEP:
		f.PropertyCEP = value
	case FieldPropertyType:
		f.PropertyType = value
	case FieldPropertyValue:
		f.PropertyValue = value
	case FieldPropertyOwnership:
		f.PropertyOwnership = value
	case FieldConsortiumType:
		f.ConsortiumType = value
	case FieldConsortiumValue:
		f.ConsortiumValue = value
	case FieldConsortiumTerm:
		f.ConsortiumTerm = value
	case FieldHasPreviousConsortium:
		f.HasPreviousConsortium = value
	case FieldObservations:
		f.Observations = value
	default:
		return false
	}
	return true
}

// Filled reports whether a field currently holds a value.
func (f Fields) Filled(name string) bool {
	return f.Get(name) != ""
}
