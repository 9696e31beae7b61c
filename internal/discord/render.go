// internal/discord/render.go
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/cncnet/lobbyrelay/internal/announce"
	"github.com/cncnet/lobbyrelay/internal/lobby"
)

// abandonedFooter marks a listing embed as belonging to a closed or expired
// lobby. Recover uses it to skip dead listings when re-acquiring handles.
const abandonedFooter = "Lobby closed or abandoned"

// recoverScanLimit caps how many recent messages Recover inspects.
const recoverScanLimit = 50

// messenger is the slice of discordgo.Session used by the renderer,
// extracted so tests can substitute a fake.
type messenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// ListRenderer maintains the live lobby listing in a Discord channel. It
// implements lobby.Renderer: one embed message per hosted lobby, edited in
// place as the host re-broadcasts and marked abandoned when the lobby ends.
type ListRenderer struct {
	session  messenger
	botID    string
	log      *logrus.Logger
	listChan string

	// announceChan and announceMsg, when configured, cause a one-line
	// "new game hosted" message in a separate channel whenever a fresh
	// listing is created.
	announceChan string
	announceMsg  string
}

// NewListRenderer builds a ListRenderer posting listings to listChannelID.
// botID is the bot's own user ID, needed to recognize its listings when
// recovering handles. announceChannelID may be empty to disable announcements.
func NewListRenderer(session messenger, botID, listChannelID, announceChannelID, announceMessage string, log *logrus.Logger) *ListRenderer {
	return &ListRenderer{
		session:      session,
		botID:        botID,
		log:          log,
		listChan:     listChannelID,
		announceChan: announceChannelID,
		announceMsg:  announceMessage,
	}
}

// Create posts a new listing embed and returns the message ID as the handle.
func (r *ListRenderer) Create(ctx context.Context, host string, rec *announce.Record) (lobby.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, err := r.session.ChannelMessageSendEmbed(r.listChan, buildEmbed(host, rec))
	if err != nil {
		return "", fmt.Errorf("post lobby listing: %w", err)
	}
	r.announce()
	return lobby.Handle(msg.ID), nil
}

// Edit updates an existing listing embed in place.
func (r *ListRenderer) Edit(ctx context.Context, h lobby.Handle, host string, rec *announce.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.session.ChannelMessageEditEmbed(r.listChan, string(h), buildEmbed(host, rec))
	if err != nil {
		if isUnknownMessage(err) {
			return fmt.Errorf("edit lobby listing %s: %w", h, lobby.ErrRenderingNotFound)
		}
		return fmt.Errorf("edit lobby listing %s: %w", h, err)
	}
	return nil
}

// Abandon rewrites the listing as closed, preserving it in the channel
// history instead of deleting it.
func (r *ListRenderer) Abandon(ctx context.Context, h lobby.Handle, host string, rec *announce.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.session.ChannelMessageEditEmbed(r.listChan, string(h), buildAbandonedEmbed(host, rec))
	if err != nil {
		if isUnknownMessage(err) {
			return fmt.Errorf("abandon lobby listing %s: %w", h, lobby.ErrRenderingNotFound)
		}
		return fmt.Errorf("abandon lobby listing %s: %w", h, err)
	}
	return nil
}

// Recover scans recent messages in the listing channel for a live listing
// authored by the bot for host, returning its handle when found.
func (r *ListRenderer) Recover(ctx context.Context, host string) (lobby.Handle, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	msgs, err := r.session.ChannelMessages(r.listChan, recoverScanLimit, "", "", "")
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"channel": r.listChan,
			"error":   err,
		}).Warn("Failed to scan listing channel for handle recovery")
		return "", false
	}
	for _, m := range msgs {
		if m.Author == nil || m.Author.ID != r.botID {
			continue
		}
		for _, e := range m.Embeds {
			if e.Author == nil || e.Author.Name != host {
				continue
			}
			if e.Footer != nil && e.Footer.Text == abandonedFooter {
				continue
			}
			return lobby.Handle(m.ID), true
		}
	}
	return "", false
}

func (r *ListRenderer) announce() {
	if r.announceChan == "" || r.announceMsg == "" {
		return
	}
	if _, err := r.session.ChannelMessageSend(r.announceChan, r.announceMsg); err != nil {
		r.log.WithFields(logrus.Fields{
			"channel": r.announceChan,
			"error":   err,
		}).Warn("Failed to post game announcement message")
	}
}

// buildEmbed formats a lobby record as a listing embed: title with lock/key
// markers, game link and version, thumbnail icon, host as author, and game
// mode / map / player fields.
func buildEmbed(host string, rec *announce.Record) *discordgo.MessageEmbed {
	title := rec.DisplayName
	if rec.Locked {
		title += " \U0001F512" // lock
	}
	if rec.Passworded {
		title += " \U0001F511" // key
	}

	players := strings.Join(rec.Players, "\n")
	if players == "" {
		players = "-"
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("[%s](%s) %s", rec.Game.Name, rec.Game.SiteURL, rec.GameVersion),
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: rec.Game.IconURL},
		Author:      &discordgo.MessageEmbedAuthor{Name: host},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "\U0001F3AE Game mode", Value: orDash(rec.GameMode), Inline: true},
			{Name: "\U0001F5FA Map", Value: orDash(rec.MapName), Inline: true},
			{
				Name:   fmt.Sprintf("\U0001F9CD Players (%d / %d)", len(rec.Players), rec.MaxPlayers),
				Value:  players,
				Inline: true,
			},
		},
	}
	return embed
}

// orDash substitutes a dash for empty field values, which Discord rejects.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// buildAbandonedEmbed keeps the lobby's identifying info but strikes it from
// the live listing with an abandoned footer.
func buildAbandonedEmbed(host string, rec *announce.Record) *discordgo.MessageEmbed {
	embed := buildEmbed(host, rec)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: abandonedFooter}
	embed.Color = 0x95a5a6
	return embed
}

// isUnknownMessage reports whether err is Discord's "Unknown Message" REST
// error, meaning the message a handle points at no longer exists.
func isUnknownMessage(err error) bool {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		return rerr.Message.Code == discordgo.ErrCodeUnknownMessage
	}
	return false
}
