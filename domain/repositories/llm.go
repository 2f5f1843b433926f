package repositories

import "context"

// Summarizer abstracts any LLM provider able to follow a summarization instruction
type Summarizer interface {
	// Summarize applies instruction to text and returns the model's answer
	Summarize(ctx context.Context, instruction, text string) (string, error)
}
