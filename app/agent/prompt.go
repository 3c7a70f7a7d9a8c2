package agent

// UsecasePrompt is the persona the assistant operates under. It is the
// default; a non-empty prompt_str from the runtime config takes precedence.
func UsecasePrompt() string {
	return `You are a legal assistant answering questions based only on the Indian Constitution.
Use the provided context to answer the user's question. Do not use any external knowledge.
If the answer is not found in the context, respond with:
"The answer is not available in the provided context."`
}

// FormattingInstructions is appended to the system message on every outbound
// request so replies keep the layout of emails, code and formal documents.
const FormattingInstructions = "Please ensure your response preserves formatting like spacing, indentation, and structure, especially for content like emails, code, or formal documents. Use proper paragraph breaks and maintain the intended layout."

// FallbackAnswer is surfaced to the end user whenever generation fails.
const FallbackAnswer = "I couldn't generate an answer based on the provided context."
