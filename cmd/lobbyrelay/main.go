// cmd/lobbyrelay/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bwmarrin/discordgo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cncnet/lobbyrelay/internal/announce"
	"github.com/cncnet/lobbyrelay/internal/config"
	"github.com/cncnet/lobbyrelay/internal/discord"
	"github.com/cncnet/lobbyrelay/internal/lobby"
	"github.com/cncnet/lobbyrelay/internal/relay"
)

// announcementQueueSize bounds the backlog between the IRC reader and the
// lobby engine. Broadcasts arrive every ~20s per hosted game, so even a small
// buffer is generous.
const announcementQueueSize = 64

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:           "lobbyrelay",
		Short:         "Relay chat between IRC and Discord and list hosted game lobbies",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "lobbyrelay.yaml", "path to the config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(configPath string, verbose bool) error {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	store, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := store.Config()
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token is not set in %s", configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	if err := session.Open(); err != nil {
		return fmt.Errorf("connect to discord: %w", err)
	}
	defer session.Close()

	// State.User is only filled once READY arrives; fetch our identity
	// directly so the renderer can recognize its own listings immediately.
	botUser, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("look up bot user: %w", err)
	}
	logger.WithField("user", botUser.Username).Info("Connected to Discord")

	game := &announce.GameDescriptor{
		Name:    cfg.Game.Name,
		IconURL: cfg.Game.IconURL,
		SiteURL: cfg.Game.SiteURL,
	}
	renderer := discord.NewListRenderer(
		session,
		botUser.ID,
		cfg.Discord.ListChannel,
		cfg.Discord.AnnounceChannel,
		cfg.Discord.AnnounceMessage,
		logger,
	)

	engine := lobby.NewEngine(lobby.NewRegistry(), renderer, game, logger,
		lobby.WithStaleThreshold(cfg.Expiry.StaleThreshold),
		lobby.WithSweepInterval(cfg.Expiry.SweepInterval),
	)
	engine.OnCount = func(n int) {
		if err := discord.UpdatePresence(session, n); err != nil {
			logger.WithError(err).Warn("Failed to update presence")
		}
	}

	games := make(chan lobby.Announcement, announcementQueueSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx, games)
	}()

	forward := func(sender, text string) {
		c := store.Config()
		if c.Discord.MessageChannel == "" {
			return
		}
		if _, err := session.ChannelMessageSend(c.Discord.MessageChannel, relay.FormatForDiscord(sender, text)); err != nil {
			logger.WithError(err).Warn("Failed to forward IRC message to Discord")
		}
	}
	ircBridge := relay.NewIRCBridge(cfg.IRC, games, forward, logger)

	bridge := relay.NewDiscordBridge(store, ircBridge.Writer(), discord.NewCommander(store, logger), logger)
	session.AddHandler(bridge.OnMessageCreate)

	logger.Info("Running main loop")
	err = ircBridge.Run(ctx)
	stop()
	wg.Wait()

	if saveErr := store.Save(); saveErr != nil {
		logger.WithError(saveErr).Warn("Failed to persist config on shutdown")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("irc connection: %w", err)
	}
	logger.Info("Finished cleanly")
	return nil
}
