package notifications

import "context"

// Message is a single outbound notification email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. Delivery is synchronous and best effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
