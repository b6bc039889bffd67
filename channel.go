package main

import "context"

// Channel abstracts an external chat platform (Discord, Slack, Telegram, ...)
// that announces player events and may carry messages back into the game.
type Channel interface {
	Name() string
	Send(ctx context.Context, event PlayerEvent) error
	Messages() <-chan InboundMessage
	Start(ctx context.Context) error
	Close() error
}
