// internal/relay/discord.go
package relay

import (
	"fmt"
	"strings"

	"github.com/Travis-Britz/irc"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/cncnet/lobbyrelay/internal/config"
	"github.com/cncnet/lobbyrelay/internal/discord"
)

// DiscordBridge forwards messages from the configured Discord channel into
// the IRC lobby channel and dispatches prefix commands.
type DiscordBridge struct {
	store     *config.Store
	ircWriter irc.MessageWriter
	commander *discord.Commander
	log       *logrus.Logger
}

// NewDiscordBridge builds the bridge. ircWriter is the live IRC connection.
func NewDiscordBridge(store *config.Store, ircWriter irc.MessageWriter, commander *discord.Commander, log *logrus.Logger) *DiscordBridge {
	return &DiscordBridge{
		store:     store,
		ircWriter: ircWriter,
		commander: commander,
		log:       log,
	}
}

// OnMessageCreate is registered as a discordgo handler. Own messages are
// ignored; commands are dispatched first, everything else in the message
// channel is relayed to IRC.
func (b *DiscordBridge) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	cfg := b.store.Config()

	if cmd, ok := strings.CutPrefix(m.Content, cfg.Discord.Prefix); ok && cfg.Discord.Prefix != "" {
		if b.commander != nil && b.commander.Dispatch(s, m, cmd) {
			return
		}
	}

	if cfg.Discord.MessageChannel == "" || m.ChannelID != cfg.Discord.MessageChannel {
		return
	}
	if cfg.IRC.LobbyChannel == "" {
		return
	}

	b.ircWriter.WriteMessage(irc.Msg(cfg.IRC.LobbyChannel, FormatForIRC(m.Author.Username, m.Content)))
}

// FormatForIRC renders a Discord message as an IRC chat line.
func FormatForIRC(author, content string) string {
	return fmt.Sprintf("<%s> %s", author, content)
}

// FormatForDiscord renders an IRC chat line as a Discord message with the
// sender's nick in bold.
func FormatForDiscord(sender, text string) string {
	return fmt.Sprintf("**<%s>** %s", sender, text)
}
