package driven

// Prompt names understood by PromptStore.
const (
	// PromptAnswerSystem is the system prompt for grounded answer synthesis.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser is the user turn template. It takes the retrieved
	// context followed by the question as %s placeholders.
	PromptAnswerUser = "answer_user"
)

// PromptStore loads user-editable LLM prompt templates.
type PromptStore interface {
	// Load returns the template for name, falling back to a built-in default.
	Load(name string) (string, error)
}
