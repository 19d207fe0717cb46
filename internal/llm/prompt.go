package llm

import "strings"

// RefusalSentence is the answer a model must give when the supplied data
// does not cover the question.
const RefusalSentence = "I apologize, but I don't have specific information about that in my current knowledge base."

const promptHeader = "You are a helpful assistant. Use ONLY the following data to answer the question. " +
	"Focus on content that directly relates to the question's keywords or intent. " +
	"If no relevant data exists or the question is unrelated, respond exactly with: '" + RefusalSentence + "' " +
	"Do not invent information or provide general knowledge outside the data."

const promptFooter = "Important: If the Data includes any web links or labeled pages (for example: 'Service Page: https://...', " +
	"or 'Contact Page: https://...'), include a short 'For more details:' section at the end of your answer listing those links that are relevant. " +
	"If the user specifically asks for contact information, prioritize including contact details and the Contact Page link if present in the Data. " +
	"Keep the answer concise and only use information present in the Data."

// BuildPrompt creates the grounded prompt for a question and its context
func BuildPrompt(question, data string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nData:\n")
	b.WriteString(data)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(promptFooter)
	return b.String()
}
