// internal/announce/record.go
package announce

import (
	"strings"
	"time"
)

// GameDescriptor holds the static information about the game or mod whose
// lobbies this bot tracks. It is configured once at startup and shared by
// reference across every Record of the same game.
type GameDescriptor struct {
	Name    string
	IconURL string
	SiteURL string
}

// Record is the parsed state of one game lobby as broadcast by a hosting
// client over CTCP GAME. Records are never mutated after construction; a new
// broadcast from the same host produces a brand-new Record that replaces the
// previous one.
type Record struct {
	Game *GameDescriptor

	ProtocolVersion string
	GameVersion     string
	MaxPlayers      int
	ChannelName     string
	DisplayName     string

	Locked     bool
	Passworded bool
	Closed     bool
	Loaded     bool
	Ladder     bool

	Players      []string
	MapName      string
	GameMode     string
	TunnelAddr   string
	LoadedGameID string

	// Timestamp is when the broadcast was observed, stamped from the caller's
	// clock at parse time. The expiry sweeper compares against it.
	Timestamp time.Time
}

// FlagString renders the lobby flags back into the 5-character wire form
// {locked, passworded, closed, loaded, ladder}.
func (r *Record) FlagString() string {
	flags := [5]bool{r.Locked, r.Passworded, r.Closed, r.Loaded, r.Ladder}
	b := make([]byte, 5)
	for i, f := range flags {
		if f {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// PlayerList renders the player names back into the comma-separated wire form.
func (r *Record) PlayerList() string {
	return strings.Join(r.Players, ",")
}
