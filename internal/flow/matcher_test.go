package flow

import "testing"

func TestDetectMenuChoice_Numbers(t *testing.T) {
	tests := map[string]MenuOption{
		"1": MenuInsurance,
		"2": MenuConsortium,
		"3": MenuDuplicateInvoice,
		"4": MenuClaim,
		"5": MenuHumanRequest,
		"6": MenuOther,
		"7": MenuNone,
	}
	for input, want := range tests {
		if got := DetectMenuChoice(input); got != want {
			t.Errorf("DetectMenuChoice(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDetectMenuChoice_Keywords(t *testing.T) {
	tests := []struct {
		input string
		want  MenuOption
	}{
		{"quero fazer um seguro", MenuInsurance},
		{"Seguro para meu carro", MenuInsurance},
		{"tenho interesse em consórcio", MenuConsortium},
		{"consorcio de imovel", MenuConsortium},
		{"preciso da segunda via", MenuDuplicateInvoice},
		{"me manda o boleto", MenuDuplicateInvoice},
		{"quero falar com um atendente", MenuHumanRequest},
		{"posso falar com uma pessoa?", MenuHumanRequest},
		{"outro assunto", MenuOther},
		{"bom dia", MenuNone},
		{"", MenuNone},
		{"   ", MenuNone},
	}
	for _, tt := range tests {
		if got := DetectMenuChoice(tt.input); got != tt.want {
			t.Errorf("DetectMenuChoice(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectMenuChoice_ClaimPriority(t *testing.T) {
	// A loss event must win over any product keyword in the same message.
	tests := []string{
		"meu carro pegou fogo, preciso de informações do seguro auto",
		"bateram no meu carro, tenho seguro",
		"roubaram minha moto, e o consórcio?",
		"sofri uma colisão ontem",
		"perda total do veículo",
	}
	for _, input := range tests {
		if got := DetectMenuChoice(input); got != MenuClaim {
			t.Errorf("DetectMenuChoice(%q) = %q, want %q", input, got, MenuClaim)
		}
	}
}

func TestDetectMenuChoice_DuplicateInvoiceExclusion(t *testing.T) {
	// "seguro" must not capture billing requests for an existing policy.
	tests := []string{
		"segunda via do seguro",
		"quero o boleto do meu seguro",
	}
	for _, input := range tests {
		if got := DetectMenuChoice(input); got != MenuDuplicateInvoice {
			t.Errorf("DetectMenuChoice(%q) = %q, want %q", input, got, MenuDuplicateInvoice)
		}
	}
}

func TestDetectMenuChoice_Restart(t *testing.T) {
	for _, input := range []string{"0", "menu", "Voltar", "INICIO", "início"} {
		if got := DetectMenuChoice(input); got != MenuRestart {
			t.Errorf("DetectMenuChoice(%q) = %q, want restart", input, got)
		}
	}
}

func TestDetectInsuranceType(t *testing.T) {
	tests := []struct {
		input string
		want  Type
	}{
		{"1", TypeAuto},
		{"2", TypeHome},
		{"3", TypeLife},
		{"4", TypeBusiness},
		{"seguro do meu carro", TypeAuto},
		{"veículo", TypeAuto},
		{"apartamento", TypeHome},
		{"seguro de vida", TypeLife},
		{"para minha empresa", TypeBusiness},
		{"sei lá", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DetectInsuranceType(tt.input); got != tt.want {
			t.Errorf("DetectInsuranceType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectConsortiumType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1", "auto"},
		{"2", "imovel"},
		{"3", "servico"},
		{"quero um carro", "auto"},
		{"uma casa", "imovel"},
		{"serviço", "servico"},
		{"", ""},
		{"talvez", ""},
	}
	for _, tt := range tests {
		if got := DetectConsortiumType(tt.input); got != tt.want {
			t.Errorf("DetectConsortiumType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractField_Documents(t *testing.T) {
	tests := []struct {
		input  string
		kind   FieldKind
		want   string
		wantOK bool
	}{
		{"123.456.789-00", KindCPF, "12345678900", true},
		{"meu cpf é 123.456.789-00", KindCPFOrCNPJ, "12345678900", true},
		{"12.345.678/0001-95", KindCNPJ, "12345678000195", true},
		{"12.345.678/0001-95", KindCPFOrCNPJ, "12345678000195", true},
		{"1234", KindCPF, "", false},
		{"123456789001", KindCPFOrCNPJ, "", false}, // 12 digits: neither CPF nor CNPJ
		{"", KindCPF, "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractField(tt.input, tt.kind)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractField(%q, %d) = (%q, %v), want (%q, %v)",
				tt.input, tt.kind, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExtractField_PlatePhoneCEP(t *testing.T) {
	tests := []struct {
		input  string
		kind   FieldKind
		want   string
		wantOK bool
	}{
		{"abc-1234", KindPlate, "ABC1234", true},
		{"ABC1D23", KindPlate, "ABC1D23", true},
		{"placa abc1234", KindPlate, "", false}, // extra letters bleed in
		{"(11) 98765-4321", KindPhone, "11987654321", true},
		{"1198765", KindPhone, "", false},
		{"01310-100", KindCEP, "01310100", true},
		{"1310100", KindCEP, "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractField(tt.input, tt.kind)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractField(%q, %d) = (%q, %v), want (%q, %v)",
				tt.input, tt.kind, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExtractField_FreeText(t *testing.T) {
	if got, ok := ExtractField("  João da Silva  ", KindFreeText); !ok || got != "João da Silva" {
		t.Errorf("free text = (%q, %v)", got, ok)
	}
	if _, ok := ExtractField("ab", KindFreeText); ok {
		t.Error("two-character text should be rejected")
	}
	if _, ok := ExtractField("", KindFreeText); ok {
		t.Error("empty text should be rejected")
	}
}

func TestExtractField_YesNo(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"sim", "sim", true},
		{"Sim, claro", "sim", true},
		{"S", "sim", true},
		{"não", "nao", true},
		{"nao tenho", "nao", true},
		{"n", "nao", true},
		{"sim e não", "", false}, // ambiguous
		{"talvez", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractField(tt.input, KindYesNo)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractField(%q, yes_no) = (%q, %v), want (%q, %v)",
				tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
