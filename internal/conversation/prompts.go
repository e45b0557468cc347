package conversation

import (
	"fmt"
	"strings"

	"github.com/seguroja/whatsapp-crm/internal/flow"
)

// Menu and hand-off texts are fixed; only in-flow replies go through the
// language model.

const menuTemplate = `Olá%s! Sou o assistente virtual da Seguro JA 😊

Como posso te ajudar hoje?

1️⃣ Seguros
2️⃣ Consórcio
3️⃣ Segunda via de boleto
4️⃣ Sinistro
5️⃣ Falar com um atendente
6️⃣ Outros assuntos

Digite o número da opção ou escreva o que você precisa.`

const insuranceMenuMessage = `Ótimo! Qual tipo de seguro você procura?

1️⃣ Auto
2️⃣ Residencial
3️⃣ Vida
4️⃣ Empresarial

Digite o número ou o nome do seguro.`

const consortiumMenuMessage = `Perfeito! Qual tipo de consórcio você tem interesse?

1️⃣ Auto
2️⃣ Imóvel
3️⃣ Serviços`

const completionMessage = "Perfeito! 😊 Coletei todas as informações. " +
	"Um consultor especializado entrará em contato em breve para discutir " +
	"as melhores soluções para você. Muito obrigado!"

const handoffMessage = "Entendido! Já estou acionando um de nossos atendentes. " +
	"Você será atendido em instantes. 😊"

const claimHandoffMessage = "Sinto muito pelo ocorrido. 🙏 Já acionei nossa equipe de sinistros " +
	"e um atendente falará com você em instantes. Se estiver em situação de emergência, " +
	"ligue para os serviços de urgência."

const fallbackMessage = "Desculpe, ocorreu um erro ao processar sua mensagem. " +
	"Por favor, tente novamente."

const priceDeflection = "Entendo seu interesse! Valores e cotações personalizadas serão tratados " +
	"pelo nosso consultor especializado. Podemos continuar com seus dados para que ele prepare " +
	"a melhor proposta para você?"

// MenuMessage greets the customer, by first name when known, and lists the
// main menu.
func MenuMessage(firstName string) string {
	if firstName != "" {
		return fmt.Sprintf(menuTemplate, ", "+firstName)
	}
	return fmt.Sprintf(menuTemplate, "")
}

// EntryMessage is the fixed reply sent when a flow escalates on entry.
func EntryMessage(t flow.Type) string {
	if t == flow.TypeClaim {
		return claimHandoffMessage
	}
	return handoffMessage
}

var flowDescriptions = map[flow.Type]string{
	flow.TypeAuto:             "cotação de seguro auto",
	flow.TypeHome:             "cotação de seguro residencial",
	flow.TypeLife:             "cotação de seguro de vida",
	flow.TypeBusiness:         "cotação de seguro empresarial",
	flow.TypeConsortium:       "proposta de consórcio",
	flow.TypeDuplicateInvoice: "emissão de segunda via de boleto",
}

// systemPrompt builds the agent persona for in-flow replies. askFor is the
// label of the next datum to collect; when empty the model only acknowledges
// and keeps the conversation warm.
func systemPrompt(t flow.Type, askFor string) string {
	var b strings.Builder
	b.WriteString("Você é um atendente de vendas profissional e amigável da Seguro JA, uma corretora de seguros.\n")
	desc, ok := flowDescriptions[t]
	if !ok {
		desc = "atendimento"
	}
	fmt.Fprintf(&b, "O cliente está em um fluxo de %s.\n\n", desc)

	if askFor != "" {
		fmt.Fprintf(&b, "SUA TAREFA: pedir ao cliente, de forma natural e educada, o seguinte dado: %s.\n", askFor)
		b.WriteString("Peça apenas esse dado, um por vez.\n\n")
	} else {
		b.WriteString("SUA TAREFA: agradecer e confirmar que as informações foram recebidas.\n\n")
	}

	b.WriteString("REGRAS IMPORTANTES:\n")
	b.WriteString("- Sempre seja educado, empático e profissional\n")
	b.WriteString("- NÃO fale sobre preços, cotações ou valores - JAMAIS\n")
	fmt.Fprintf(&b, "- Se perguntarem sobre preços, responda: %q\n", priceDeflection)
	b.WriteString("- Responda a dúvidas básicas sobre seguros se o cliente perguntar\n")
	b.WriteString("- Evite respostas muito longas (máx 2-3 linhas)\n")
	b.WriteString("- Use emojis moderadamente (😊 ✅ 📋)\n\n")
	b.WriteString("Responda apenas a mensagem mais recente do cliente.")
	return b.String()
}

// extractionPrompt asks for a strict JSON object keyed by the schema's
// technical names. Labels give the model the Portuguese meaning of each key.
func extractionPrompt(schema []string) string {
	var b strings.Builder
	b.WriteString("Analise esta conversa e extraia os seguintes dados em JSON:\n{\n")
	for i, name := range schema {
		fmt.Fprintf(&b, "  %q: %q", name, flow.FieldLabel(name)+" ou null")
		if i < len(schema)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\nUse exatamente essas chaves. Retorne APENAS JSON válido, sem explicação.")
	return b.String()
}
