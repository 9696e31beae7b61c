// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is a snapshot of the bot's settings. Chat commands can mutate a few
// of them at runtime through Store.Set, which also persists the change.
type Config struct {
	Game    GameConfig    `mapstructure:"game"`
	Discord DiscordConfig `mapstructure:"discord"`
	IRC     IRCConfig     `mapstructure:"irc"`
	Expiry  ExpiryConfig  `mapstructure:"expiry"`
}

// GameConfig describes the game whose lobbies the bot lists.
type GameConfig struct {
	Name    string `mapstructure:"name"`
	IconURL string `mapstructure:"icon_url"`
	SiteURL string `mapstructure:"site_url"`
}

// DiscordConfig holds the Discord transport settings. Channel IDs are Discord
// snowflakes kept as strings.
type DiscordConfig struct {
	Token           string `mapstructure:"token"`
	Prefix          string `mapstructure:"prefix"`
	AnnounceChannel string `mapstructure:"announce_channel"`
	ListChannel     string `mapstructure:"list_channel"`
	MessageChannel  string `mapstructure:"message_channel"`
	AnnounceMessage string `mapstructure:"announce_message"`
}

// IRCConfig holds the IRC transport settings.
type IRCConfig struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Nick             string `mapstructure:"nick"`
	LobbyChannel     string `mapstructure:"lobby_channel"`
	BroadcastChannel string `mapstructure:"broadcast_channel"`
}

// ExpiryConfig controls the lobby expiry sweeper.
type ExpiryConfig struct {
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// Store wraps a viper instance bound to one config file. It hands out Config
// snapshots and persists runtime mutations back to the file.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Load reads the config file at path, creating a Store with defaults applied
// for any missing keys. A missing file is not an error; the defaults are used
// and the file is created on the first Save.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("LOBBYRELAY")
	// Nested keys contain dots; map them to underscores so e.g.
	// LOBBYRELAY_DISCORD_TOKEN overrides discord.token.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	s := &Store{v: v, path: path}
	if _, err := s.snapshot(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the current settings snapshot.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, _ := s.snapshot()
	return cfg
}

// Set updates one key and writes the config file.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.v.WriteConfigAs(s.path)
}

// Save writes the full current configuration to the file, matching the
// original bot's behavior of persisting its config on shutdown.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.WriteConfigAs(s.path)
}

func (s *Store) snapshot() (Config, error) {
	var cfg Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game.name", "CnCNet game")
	v.SetDefault("game.icon_url", "https://avatars0.githubusercontent.com/u/11489929?s=200&v=4")
	v.SetDefault("game.site_url", "https://cncnet.org")

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.prefix", "!")
	v.SetDefault("discord.announce_channel", "")
	v.SetDefault("discord.list_channel", "")
	v.SetDefault("discord.message_channel", "")
	v.SetDefault("discord.announce_message", "Hey people, a new game has been hosted!")

	v.SetDefault("irc.host", "irc.gamesurge.net")
	v.SetDefault("irc.port", 6667)
	v.SetDefault("irc.nick", "discord_bot")
	v.SetDefault("irc.lobby_channel", "")
	v.SetDefault("irc.broadcast_channel", "")

	v.SetDefault("expiry.stale_threshold", 30*time.Second)
	v.SetDefault("expiry.sweep_interval", 30*time.Second)
}
