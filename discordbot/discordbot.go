// Package discordbot posts admin notifications to a Discord channel.
package discordbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	ds "policygen/main_backend/database_service"
)

// Sender delivers a message to a channel.
type Sender interface {
	Send(channelID, content string) error
}

// SessionSender sends through a live discordgo session.
type SessionSender struct {
	Session *discordgo.Session
}

func (s SessionSender) Send(channelID, content string) error {
	_, err := s.Session.ChannelMessageSend(channelID, content)
	return err
}

// Open creates and connects a bot session. The caller closes it.
func Open(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}
	return session, nil
}

type Notifier struct {
	send      Sender
	channelID string
	log       zerolog.Logger
}

func NewNotifier(send Sender, channelID string, log zerolog.Logger) *Notifier {
	return &Notifier{send: send, channelID: channelID, log: log.With().Str("component", "discordbot").Logger()}
}

// Message renders the notification for ev. ok is false for events admins
// do not need to hear about.
func Message(ev ds.AppEvent) (msg string, ok bool) {
	status := deref(ev.Status)
	switch {
	case ev.Table == "users" && ev.Action == "INSERT" && status == string(ds.UserPending):
		return fmt.Sprintf("📝 New account waiting for approval: **%s** (%s)", deref(ev.Username), deref(ev.Email)), true
	case ev.Table == "documents" && ev.Action == "UPDATE" && status == string(ds.DocumentPublished):
		return fmt.Sprintf("🚀 Documents published for **%s**", deref(ev.AppName)), true
	}
	return "", false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Run forwards events until ctx is done or the event stream closes. A
// failed send is logged and skipped; an error from the stream ends Run.
func (n *Notifier) Run(ctx context.Context, events <-chan ds.AppEvent, errs <-chan error) error {
	n.log.Info().Str("channel", n.channelID).Msg("Discord notifier started ✨")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, open := <-errs:
			if open && err != nil {
				return err
			}
			errs = nil
		case ev, open := <-events:
			if !open {
				return nil
			}
			msg, ok := Message(ev)
			if !ok {
				continue
			}
			if err := n.send.Send(n.channelID, msg); err != nil {
				n.log.Warn().Err(err).Str("table", ev.Table).Str("row", ev.RowID).Msg("❌ failed to send notification")
				continue
			}
			n.log.Debug().Str("table", ev.Table).Str("row", ev.RowID).Msg("notification sent")
		}
	}
}
