// internal/relay/irc.go
package relay

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/Travis-Britz/irc"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cncnet/lobbyrelay/internal/config"
	"github.com/cncnet/lobbyrelay/internal/lobby"
)

// ChatForward delivers one line of IRC channel chat to the Discord side.
type ChatForward func(sender, text string)

// IRCBridge owns the IRC connection: it joins the configured channels, feeds
// CTCP GAME broadcasts into the lobby engine's queue, and forwards regular
// channel chat to Discord.
type IRCBridge struct {
	client *irc.Client
	cfg    config.IRCConfig
	log    *logrus.Logger

	games   chan<- lobby.Announcement
	forward ChatForward
}

// NewIRCBridge builds the bridge. games receives one Announcement per GAME
// broadcast, in arrival order. forward may be nil to disable chat relaying.
func NewIRCBridge(cfg config.IRCConfig, games chan<- lobby.Announcement, forward ChatForward, log *logrus.Logger) *IRCBridge {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := &irc.Client{
		Addr:     addr,
		Nickname: cfg.Nick,
		// CnCNet's IRC network speaks plaintext on the standard port; the
		// library dials TLS unless given a DialFn.
		DialFn: func() (io.ReadWriteCloser, error) {
			return net.Dial("tcp", addr)
		},
	}
	return &IRCBridge{
		client:  client,
		cfg:     cfg,
		log:     log,
		games:   games,
		forward: forward,
	}
}

// Writer exposes the IRC connection for outbound messages (Discord → IRC).
func (b *IRCBridge) Writer() irc.MessageWriter {
	return b.client
}

// Run connects to the IRC server and processes events until ctx is canceled
// or the connection drops. It blocks for the lifetime of the connection.
func (b *IRCBridge) Run(ctx context.Context) error {
	r := &irc.Router{}

	r.OnConnect(func(w irc.MessageWriter, m *irc.Message) {
		b.log.WithField("server", b.cfg.Host).Info("Connected to IRC")
		if b.cfg.LobbyChannel != "" {
			w.WriteMessage(irc.Join(b.cfg.LobbyChannel))
		}
		if b.cfg.BroadcastChannel != "" {
			w.WriteMessage(irc.Join(b.cfg.BroadcastChannel))
		}
	})

	r.OnCTCP("GAME", func(w irc.MessageWriter, m *irc.Message) {
		b.handleGame(m)
	})

	if b.forward != nil && b.cfg.BroadcastChannel != "" {
		r.OnText("*", func(w irc.MessageWriter, m *irc.Message) {
			if m.Source.Nick.Is(b.client.Nick().String()) {
				return
			}
			text, _ := m.Text()
			b.forward(m.Source.Nick.String(), TrimClientPrefix(text))
		}).MatchChan(b.cfg.BroadcastChannel)
	}

	return b.client.ConnectAndRun(ctx, r)
}

// handleGame turns a CTCP GAME event into a queued Announcement. The send
// blocks if the engine is behind, which preserves arrival order.
func (b *IRCBridge) handleGame(m *irc.Message) {
	a := lobby.Announcement{
		ID:        uuid.New(),
		Announcer: m.Source.Nick.String(),
		Channel:   m.Params.Get(1),
		Raw:       m.Params.Get(2),
	}
	b.log.WithFields(logrus.Fields{
		"event":     a.ID,
		"announcer": a.Announcer,
		"channel":   a.Channel,
	}).Debug("Received CTCP GAME broadcast")
	b.games <- a
}

// TrimClientPrefix strips the 3-byte metadata prefix that CnCNet clients
// prepend to chat lines before they are relayed to Discord. A line of three
// bytes or fewer is pure metadata and trims to nothing.
func TrimClientPrefix(text string) string {
	if len(text) < 3 {
		return ""
	}
	return text[3:]
}
