// internal/discord/commands.go
package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/cncnet/lobbyrelay/internal/config"
)

// Commander handles prefix commands in Discord, currently just
// "<prefix>config <key> <value>" for retargeting the bot's channels and
// prefix at runtime. Accepted keys mirror the original bot: discord_prefix,
// discord_message_channel, discord_announce_channel, discord_list_channel.
type Commander struct {
	store *config.Store
	log   *logrus.Logger
}

// NewCommander builds a Commander persisting changes through store.
func NewCommander(store *config.Store, log *logrus.Logger) *Commander {
	return &Commander{store: store, log: log}
}

// Dispatch handles content if it is a recognized command, replying in the
// originating channel. It reports whether the message was consumed as a
// command.
func (c *Commander) Dispatch(s *discordgo.Session, m *discordgo.MessageCreate, content string) bool {
	fields := strings.Fields(content)
	if len(fields) == 0 || fields[0] != "config" {
		return false
	}
	if len(fields) != 3 {
		c.reply(s, m.ChannelID, "Usage: config <key> <value>")
		return true
	}
	key, value := fields[1], fields[2]

	var (
		cfgKey string
		cfgVal string
		err    error
	)
	switch key {
	case "discord_prefix":
		cfgKey, cfgVal = "discord.prefix", value
	case "discord_message_channel":
		cfgKey = "discord.message_channel"
		cfgVal, err = ParseChannelMention(value)
	case "discord_announce_channel":
		cfgKey = "discord.announce_channel"
		cfgVal, err = ParseChannelMention(value)
	case "discord_list_channel":
		cfgKey = "discord.list_channel"
		cfgVal, err = ParseChannelMention(value)
	default:
		return false
	}
	if err != nil {
		c.reply(s, m.ChannelID, fmt.Sprintf("Could not parse value: %v", err))
		return true
	}

	if err := c.store.Set(cfgKey, cfgVal); err != nil {
		c.log.WithFields(logrus.Fields{
			"key":   cfgKey,
			"error": err,
		}).Error("Failed to persist config change")
		c.reply(s, m.ChannelID, "Failed to save the new value.")
		return true
	}

	c.log.WithFields(logrus.Fields{
		"key":   cfgKey,
		"value": cfgVal,
		"user":  m.Author.Username,
	}).Info("Config updated via command")
	c.reply(s, m.ChannelID, fmt.Sprintf("The value for key `%s` is now `%s`.", key, value))
	return true
}

func (c *Commander) reply(s *discordgo.Session, channelID, text string) {
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		c.log.WithFields(logrus.Fields{
			"channel": channelID,
			"error":   err,
		}).Warn("Failed to send command reply")
	}
}

// UpdatePresence sets the bot's status line to the current lobby count.
func UpdatePresence(s *discordgo.Session, lobbies int) error {
	status := "no hosted games"
	switch {
	case lobbies == 1:
		status = "1 hosted game"
	case lobbies > 1:
		status = fmt.Sprintf("%d hosted games", lobbies)
	}
	return s.UpdateGameStatus(0, status)
}
