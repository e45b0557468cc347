package flow

import (
	"regexp"
	"strings"
)

// MenuOption is the symbol produced by menu detection. Concrete flow
// options carry the flow type's string value so the state machine can enter
// the flow directly.
type MenuOption string

const (
	MenuNone      MenuOption = ""
	MenuRestart   MenuOption = "restart"
	MenuInsurance MenuOption = "seguro"

	MenuConsortium       = MenuOption(TypeConsortium)
	MenuDuplicateInvoice = MenuOption(TypeDuplicateInvoice)
	MenuClaim            = MenuOption(TypeClaim)
	MenuHumanRequest     = MenuOption(TypeHumanRequest)
	MenuOther            = MenuOption(TypeOther)
)

// claimKeywords short-circuit every other menu rule: a message mentioning a
// loss event routes to sinistro even when it also names a product.
var claimKeywords = []string{
	"sinistro", "colisão", "colisao", "batida", "bateram", "acidente",
	"roubo", "roubaram", "furto", "furtaram", "incêndio", "incendio",
	"alagamento", "enchente", "vidro quebrado", "parabrisa quebrado",
	"pegou fogo", "fuga", "perda total",
}

// menuNumbers maps the exact numeric menu keys.
var menuNumbers = map[string]MenuOption{
	"1": MenuInsurance,
	"2": MenuConsortium,
	"3": MenuDuplicateInvoice,
	"4": MenuClaim,
	"5": MenuHumanRequest,
	"6": MenuOther,
}

var restartKeywords = []string{"0", "menu", "voltar", "inicio", "início"}

// keywordRule is one ordered menu routing rule. A rule matches when any
// keyword is a substring of the normalized message and no exclude is.
type keywordRule struct {
	option   MenuOption
	keywords []string
	excludes []string
}

// menuRules is evaluated top to bottom; order encodes routing priority and
// is covered by tests, so priority stays inspectable as data.
var menuRules = []keywordRule{
	{option: MenuConsortium, keywords: []string{"consórcio", "consorcio"}},
	{option: MenuDuplicateInvoice, keywords: []string{"segunda via", "2ª via", "boleto", "fatura"}},
	{option: MenuHumanRequest, keywords: []string{"humano", "atendente", "pessoa"}},
	{option: MenuOther, keywords: []string{"outro"}},
	// "seguro" alone must not capture a billing request for an existing policy.
	{option: MenuInsurance, keywords: []string{"seguro"}, excludes: []string{"segunda", "boleto"}},
}

// DetectMenuChoice classifies a free-text message against the main menu.
// Returns MenuNone when nothing matches; the caller keeps its state and
// re-prompts.
func DetectMenuChoice(text string) MenuOption {
	msg := normalize(text)
	if msg == "" {
		return MenuNone
	}

	for _, kw := range claimKeywords {
		if strings.Contains(msg, kw) {
			return MenuClaim
		}
	}
	if opt, ok := menuNumbers[msg]; ok {
		return opt
	}
	for _, kw := range restartKeywords {
		if msg == kw {
			return MenuRestart
		}
	}
	for _, rule := range menuRules {
		if rule.matches(msg) {
			return rule.option
		}
	}
	return MenuNone
}

func (r keywordRule) matches(msg string) bool {
	for _, ex := range r.excludes {
		if strings.Contains(msg, ex) {
			return false
		}
	}
	for _, kw := range r.keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

var insuranceNumbers = map[string]Type{
	"1": TypeAuto,
	"2": TypeHome,
	"3": TypeLife,
	"4": TypeBusiness,
}

var insuranceRules = []struct {
	flow     Type
	keywords []string
}{
	{TypeAuto, []string{"auto", "carro", "veículo", "veiculo"}},
	{TypeHome, []string{"residencial", "casa", "imóvel", "imovel", "apartamento"}},
	{TypeLife, []string{"vida"}},
	{TypeBusiness, []string{"empresa"}},
}

// DetectInsuranceType resolves the insurance sub-menu: numeric position 1-4
// or product synonyms. Returns "" when undecided.
func DetectInsuranceType(text string) Type {
	msg := normalize(text)
	if msg == "" {
		return ""
	}
	if t, ok := insuranceNumbers[msg]; ok {
		return t
	}
	for _, rule := range insuranceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.flow
			}
		}
	}
	return ""
}

var consortiumNumbers = map[string]string{
	"1": "auto",
	"2": "imovel",
	"3": "servico",
}

var consortiumRules = []struct {
	value    string
	keywords []string
}{
	{"auto", []string{"auto", "carro", "veículo", "veiculo"}},
	{"imovel", []string{"imóvel", "imovel", "casa", "apartamento"}},
	{"servico", []string{"serviço", "servico"}},
}

// DetectConsortiumType resolves the consortium sub-selection: numeric
// position 1-3 or synonyms. Returns "" when undecided.
func DetectConsortiumType(text string) string {
	msg := normalize(text)
	if msg == "" {
		return ""
	}
	if v, ok := consortiumNumbers[msg]; ok {
		return v
	}
	for _, rule := range consortiumRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.value
			}
		}
	}
	return ""
}

var (
	nonDigitRE  = regexp.MustCompile(`\D`)
	nonAlnumRE  = regexp.MustCompile(`[^a-zA-Z0-9]`)
	wordSplitRE = regexp.MustCompile(`[\s.,;:!?]+`)
)

var (
	yesWords = map[string]bool{"sim": true, "s": true, "yes": true, "claro": true, "positivo": true}
	noWords  = map[string]bool{"não": true, "nao": true, "no": true, "n": true, "negativo": true}
)

// ExtractField validates and canonicalizes one atomic value from raw
// message text. Validators reject rather than guess: malformed input yields
// ok=false and the caller re-prompts.
func ExtractField(text string, kind FieldKind) (string, bool) {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return "", false
	}

	switch kind {
	case KindCPF:
		digits := nonDigitRE.ReplaceAllString(msg, "")
		if len(digits) == 11 {
			return digits, true
		}
	case KindCNPJ:
		digits := nonDigitRE.ReplaceAllString(msg, "")
		if len(digits) == 14 {
			return digits, true
		}
	case KindCPFOrCNPJ:
		digits := nonDigitRE.ReplaceAllString(msg, "")
		if len(digits) == 11 || len(digits) == 14 {
			return digits, true
		}
	case KindPlate:
		// Brazilian plates: ABC1234 or Mercosul ABC1D23.
		plate := strings.ToUpper(nonAlnumRE.ReplaceAllString(msg, ""))
		if len(plate) == 7 {
			return plate, true
		}
	case KindPhone:
		digits := nonDigitRE.ReplaceAllString(msg, "")
		if len(digits) >= 10 {
			return digits, true
		}
	case KindCEP:
		digits := nonDigitRE.ReplaceAllString(msg, "")
		if len(digits) == 8 {
			return digits, true
		}
	case KindFreeText:
		if len(msg) > 2 {
			return msg, true
		}
	case KindYesNo:
		var yes, no bool
		for _, word := range wordSplitRE.Split(strings.ToLower(msg), -1) {
			if yesWords[word] {
				yes = true
			}
			if noWords[word] {
				no = true
			}
		}
		if yes != no {
			if yes {
				return "sim", true
			}
			return "nao", true
		}
	}
	return "", false
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
