package main

import "time"

// Player event types emitted by the watchers and the log tailer.
const (
	EventJoin  = "join"
	EventLeave = "leave"
	EventAFK   = "afk"
	EventBack  = "back" // returned from AFK
	EventChat  = "chat"
)

// PlayerEvent represents one observed change on the Minecraft server.
type PlayerEvent struct {
	Type    string
	Player  string
	Message string            // chat content, empty otherwise
	Extra   map[string]string // event-specific data (dimension, source, ...)
	Time    time.Time
}

// InboundMessage represents a message from an external channel destined for
// in-game chat.
type InboundMessage struct {
	Source  string // channel name (e.g. "Discord")
	Author  string
	Content string
}

// EventSubscriber receives player events from a watcher or the log tailer.
type EventSubscriber interface {
	OnPlayerEvent(event PlayerEvent)
}
