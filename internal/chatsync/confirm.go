package chatsync

import "context"

// Confirmer asks the user to approve a destructive action. It may block until
// the user answers or ctx ends.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// DenyAll refuses every confirmation. Used when no prompt surface exists.
var DenyAll = ConfirmFunc(func(context.Context, string) bool { return false })
