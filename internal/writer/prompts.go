package writer

import (
	"fmt"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
)

// Prompt templates live here so wording changes are a single-file edit.

// styleDescriptors maps each tone to the style line embedded in the prompt.
var styleDescriptors = map[domain.Tone]string{
	domain.ToneCasual:        "Fun and relaxed, as if chatting with a friend",
	domain.ToneProfessional:  "Serious and professional, with credibility and authority",
	domain.ToneControversial: "Provocative and polarising, with lines that spark discussion and engagement",
}

// StyleDescriptor returns the style line for a tone. Tones outside the
// closed set get the casual descriptor.
func StyleDescriptor(tone domain.Tone) string {
	if d, ok := styleDescriptors[tone]; ok {
		return d
	}
	return styleDescriptors[domain.ToneCasual]
}

const rewriteTemplate = `Act as an experienced YouTube scriptwriter. Rewrite the text below so it can be spoken on camera.

Tone: %s

Instructions:
- Keep the text short and direct
- Use punchy lines that hold attention
- Remove difficult words and unnecessary jargon
- Write the way people talk, not the way they write
- Add natural breaks for breathing
- Return ONLY the rewritten text, with no explanations or extra comments

Original text:
%s`

func buildRewritePrompt(script string, tone domain.Tone) string {
	return fmt.Sprintf(rewriteTemplate, StyleDescriptor(tone), script)
}

// ContractRequest carries the deal terms for a sponsorship contract.
type ContractRequest struct {
	ClientName   string `json:"clientName" yaml:"client_name"`
	CreatorName  string `json:"creatorName" yaml:"creator_name"`
	Value        string `json:"value" yaml:"value"`
	Deliverables string `json:"deliverables" yaml:"deliverables"`
	Deadline     string `json:"deadline" yaml:"deadline"`
}

// missingField returns the name of the first empty field, or "".
func (r ContractRequest) missingField() string {
	fields := []struct{ name, value string }{
		{"client name", r.ClientName},
		{"creator name", r.CreatorName},
		{"value", r.Value},
		{"deliverables", r.Deliverables},
		{"deadline", r.Deadline},
	}
	for _, f := range fields {
		if domain.IsBlank(f.value) {
			return f.name
		}
	}
	return ""
}

const contractTemplate = `You are a lawyer specialising in digital law and contracts for content creators.

Write a formal, professional ADVERTISING SERVICES AGREEMENT in Markdown using the details below.

**CONTRACT DETAILS:**
- Client (brand): %s
- Contractor (content creator): %s
- Total value: %s
- Delivery deadline: %s
- Deliverables / services: %s

**THE CONTRACT MUST INCLUDE:**
1. Formal heading identifying the parties
2. Purpose of the agreement (detailed description of the services)
3. Fee and payment terms (50%% upfront, 50%% on delivery)
4. Timeline and schedule
5. Image rights and content usage
6. Exclusivity (if applicable)
7. Cancellation and penalties
8. Confidentiality
9. Governing law and jurisdiction
10. Signature block

Use formal legal language. The contract must be valid and professional.`

func buildContractPrompt(r ContractRequest) string {
	return fmt.Sprintf(contractTemplate, r.ClientName, r.CreatorName, r.Value, r.Deadline, r.Deliverables)
}
