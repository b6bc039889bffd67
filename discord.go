package main

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

type DiscordChannel struct {
	session   *discordgo.Session
	channelID string
	inbound   chan InboundMessage
	botUserID string
	cfg       *Config
}

func NewDiscordChannel(token, channelID string, cfg *Config) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordgo session: %w", err)
	}

	dc := &DiscordChannel{
		session:   session,
		channelID: channelID,
		inbound:   make(chan InboundMessage, 100),
		cfg:       cfg,
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(dc.onMessage)

	return dc, nil
}

func (dc *DiscordChannel) Name() string { return "Discord" }

func (dc *DiscordChannel) Start(ctx context.Context) error {
	if err := dc.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	dc.botUserID = dc.session.State.User.ID
	log.Printf("discord bot connected as %s", dc.session.State.User.Username)

	<-ctx.Done()
	dc.session.Close()
	return nil
}

func (dc *DiscordChannel) Send(ctx context.Context, event PlayerEvent) error {
	if !dc.cfg.discordEventAllowed(event.Type) {
		return nil
	}

	msg := formatPlayerEvent(event)
	if msg == "" {
		return nil
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, msg)
	if err != nil {
		return fmt.Errorf("send to Discord: %w", err)
	}
	return nil
}

func (dc *DiscordChannel) Messages() <-chan InboundMessage { return dc.inbound }

func (dc *DiscordChannel) Close() error {
	return dc.session.Close()
}

func (dc *DiscordChannel) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.Author.ID == dc.botUserID {
		return
	}
	if m.ChannelID != dc.channelID {
		return
	}
	if m.Content == "" {
		return
	}

	author := m.Author.GlobalName
	if author == "" {
		author = m.Author.Username
	}

	dc.inbound <- InboundMessage{
		Source:  "Discord",
		Author:  author,
		Content: m.Content,
	}
}

func formatPlayerEvent(e PlayerEvent) string {
	switch e.Type {
	case EventChat:
		return fmt.Sprintf("💬 **%s**: %s", e.Player, e.Message)
	case EventJoin:
		if dim := e.Extra["dimension"]; dim != "" {
			return fmt.Sprintf("➡️ **%s** joined the game (%s)", e.Player, dim)
		}
		return fmt.Sprintf("➡️ **%s** joined the game", e.Player)
	case EventLeave:
		return fmt.Sprintf("⬅️ **%s** left the game", e.Player)
	case EventAFK:
		return fmt.Sprintf("💤 **%s** is now AFK", e.Player)
	case EventBack:
		return fmt.Sprintf("🏃 **%s** is back", e.Player)
	default:
		return ""
	}
}
