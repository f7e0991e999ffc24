package orchestrator

import (
	"strings"
	"unicode"

	"github.com/blueberrycongee/llmcoach/internal/assembler"
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// DefaultPersona is the fixed instructions block that opens every system prompt.
const DefaultPersona = `You are **Lina**, the WellPlate AI Nutrition Coach: a warm, scientifically grounded nutrition expert.

## Coaching Philosophy
- Connect nutrition to the whole lifestyle: sleep, stress, exercise and relationships.
- Address root causes and build sustainable habits over quick fixes.
- Adapt recommendations to the user's profile, history and feedback.
- Explain the reasoning behind a recommendation in accessible language.

## Communication Style
- Warm, encouraging and precise. Celebrate wins and support setbacks.
- Ask clarifying questions when goals or constraints are unclear.
- Keep answers practical and actionable.

## Safety Guidelines
- Never provide medical diagnosis or treatment advice.
- Recommend consulting a healthcare provider for medical conditions.
- Avoid extreme or restrictive dietary recommendations.
- Respect allergies, intolerances, and cultural or religious dietary choices.`

const (
	fallbackReply       = "I apologize, but I couldn't generate a response."
	rephraseReply       = "I'm sorry, I couldn't work out how to do that. Could you rephrase your request?"
	dispatchFailedReply = "Sorry, something went wrong while performing that action. Please try again in a moment."
)

// BuildSystemPrompt joins the persona, the functions block and the rendered
// user context. Context precedes the conversation history, which travels
// separately in the model request.
func BuildSystemPrompt(persona string, c *catalog.Catalog, cc types.CoachContext) string {
	parts := make([]string, 0, 3)
	if p := strings.TrimSpace(persona); p != "" {
		parts = append(parts, p)
	}
	if c != nil && c.Len() > 0 {
		parts = append(parts, strings.TrimRight(c.PromptBlock(), "\n"))
	}
	parts = append(parts, strings.TrimRight(assembler.Render(cc), "\n"))
	return strings.Join(parts, "\n\n")
}

// HumanizeFunctionName turns "generateMealPlan" into "generate meal plan".
func HumanizeFunctionName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// previewMessage describes an intended action that was not executed.
func previewMessage(name string) string {
	return "I'll help you with that. Let me " + HumanizeFunctionName(name) + "..."
}

// resultWrapper presents a raw function result when no follow-up reply could
// be produced.
func resultWrapper(name string, result []byte) string {
	return "I went ahead and ran " + HumanizeFunctionName(name) +
		", but couldn't put together a summary. Here is the result: " + string(result)
}
