// Package notify delivers opportunity messages to an operator channel.
// Implementations must return a stable message id on Create so later edits
// and deletions can target the same message.
package notify

import "context"

// Notifier manages the lifecycle of outbound messages.
type Notifier interface {
	// Create posts a new message and returns its id.
	Create(ctx context.Context, text string) (int, error)
	// Update rewrites an existing message in place and returns its id.
	Update(ctx context.Context, id int, text string) (int, error)
	// Delete removes a previously created message.
	Delete(ctx context.Context, id int) error
}
