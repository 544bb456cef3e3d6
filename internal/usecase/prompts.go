package usecase

import (
	"fmt"
	"strings"

	"chatpdf/internal/domain"
)

const (
	stuffTemplate = "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n" +
		"%s\n\nQuestion: %s\nHelpful Answer:"

	refineInitialTemplate = "Context information is below.\n" +
		"---------------------\n%s\n---------------------\n" +
		"Given the context information and not prior knowledge, answer the question: %s\n"

	refineStepTemplate = "The original question is as follows: %s\n" +
		"We have provided an existing answer: %s\n" +
		"We have the opportunity to refine the existing answer (only if needed) with some more context below.\n" +
		"------------\n%s\n------------\n" +
		"Given the new context, refine the original answer to better answer the question. " +
		"If the context isn't useful, return the original answer."

	extractTemplate = "Extract information, but ONLY ANSWER THE QUESTION IF ITS MENTIONED IN THE RETRIEVED CONTEXT: %s"

	minLengthTemplate = "Answer with Minimum %d characters:%s"
)

func stuffPrompt(chunks []domain.ScoredChunk, question string) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return fmt.Sprintf(stuffTemplate, strings.Join(texts, "\n\n"), question)
}

func refineInitialPrompt(context, question string) string {
	return fmt.Sprintf(refineInitialTemplate, context, question)
}

func refineStepPrompt(question, draft, context string) string {
	return fmt.Sprintf(refineStepTemplate, question, draft, context)
}

// ChatPrompt serializes the history as User:/Bot: lines followed by message.
func ChatPrompt(history []domain.Turn, message string) string {
	var sb strings.Builder
	for i, t := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("User: ")
		sb.WriteString(t.Question)
		sb.WriteString("\nBot: ")
		sb.WriteString(t.Answer)
	}
	sb.WriteString("\nUser: ")
	sb.WriteString(message)
	sb.WriteString("\nBot:")
	return sb.String()
}
