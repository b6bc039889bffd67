package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// BridgeSubscriber forwards player events to the Bridge's event channel.
type BridgeSubscriber struct {
	events chan<- PlayerEvent
}

func (s *BridgeSubscriber) OnPlayerEvent(event PlayerEvent) {
	select {
	case s.events <- event:
	default:
		// Drop event if channel is full (a stalled channel must not block a
		// poll cycle)
	}
}

// Bridge fans player events out to all channels and relays inbound channel
// messages into game chat.
type Bridge struct {
	rcon     Transport
	channels []Channel
	events   chan PlayerEvent
}

func NewBridge(transport Transport, channels []Channel) *Bridge {
	return &Bridge{
		rcon:     transport,
		channels: channels,
		events:   make(chan PlayerEvent, 100),
	}
}

// Events returns the event channel for subscribers to write to.
func (b *Bridge) Events() chan<- PlayerEvent {
	return b.events
}

// FanOutEvents reads events and sends them to all channels.
func (b *Bridge) FanOutEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			for _, ch := range b.channels {
				if err := ch.Send(ctx, event); err != nil {
					log.Printf("send to %s: %v", ch.Name(), err)
				}
			}
		}
	}
}

// HandleInbound reads messages from a channel and posts them to game chat.
func (b *Bridge) HandleInbound(ctx context.Context, ch Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch.Messages():
			b.sendToGame(msg)
		}
	}
}

func (b *Bridge) sendToGame(msg InboundMessage) {
	safe := msg.Content
	safe = strings.ReplaceAll(safe, `\`, `\\`)
	safe = strings.ReplaceAll(safe, `"`, `\"`)
	safe = strings.ReplaceAll(safe, "\n", " ")

	if len(safe) > 200 {
		safe = safe[:200] + "..."
	}

	cmd := fmt.Sprintf(`tellraw @a {"text":"[%s] %s: %s","color":"light_purple"}`,
		msg.Source, msg.Author, safe)

	if _, err := b.rcon.Execute(cmd); err != nil {
		log.Printf("rcon send to game: %v", err)
	}
}
