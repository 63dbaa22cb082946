package tui

import "context"

type promptRequest struct {
	text   string
	answer chan bool
}

// Prompter asks yes/no questions through the chat input. It satisfies the
// orchestrator's Confirmer.
type Prompter struct {
	requests chan promptRequest
}

// NewPrompter creates a prompter with no program attached.
func NewPrompter() *Prompter {
	return &Prompter{requests: make(chan promptRequest)}
}

// Confirm blocks until the user answers or ctx ends. A cancelled prompt is a
// refusal.
func (p *Prompter) Confirm(ctx context.Context, prompt string) bool {
	req := promptRequest{text: prompt, answer: make(chan bool, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-req.answer:
		return ok
	case <-ctx.Done():
		return false
	}
}
