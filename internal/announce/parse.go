// internal/announce/parse.go
package announce

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fieldCount is the exact number of semicolon-delimited fields in a CTCP GAME payload.
const fieldCount = 11

// flagCount is the number of positional boolean characters in the flags field.
const flagCount = 5

// Reason classifies why a broadcast payload failed to parse.
type Reason int

const (
	// FieldCountMismatch means the payload did not split into exactly 11 fields.
	FieldCountMismatch Reason = iota
	// InvalidInteger means the max-players field was not an unsigned integer.
	InvalidInteger
	// InvalidFlag means a position in the flags field held an unrecognized token,
	// or the flags field was shorter than 5 characters.
	InvalidFlag
)

func (r Reason) String() string {
	switch r {
	case FieldCountMismatch:
		return "field count mismatch"
	case InvalidInteger:
		return "invalid integer"
	case InvalidFlag:
		return "invalid flag"
	default:
		return "unknown"
	}
}

// ParseError describes a malformed GAME broadcast. A payload that fails to
// parse never produces a partial Record.
type ParseError struct {
	Reason Reason
	// Pos is the zero-based flag position for InvalidFlag errors.
	Pos    int
	detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse game announcement: %s: %s", e.Reason, e.detail)
}

// Parse decodes a raw CTCP GAME payload into a Record. The payload format is
// 11 semicolon-delimited fields:
//
//	protocol;gamever;maxplayers;channel;name;flags;players;map;mode;tunnel;loadedid
//
// where flags is a 5-character boolean string {locked, passworded, closed,
// loaded, ladder} and players is comma-separated (empty means no players).
// now is stamped onto the Record as its observation time.
func Parse(raw string, game *GameDescriptor, now time.Time) (*Record, error) {
	fields := strings.Split(raw, ";")
	if len(fields) != fieldCount {
		return nil, &ParseError{
			Reason: FieldCountMismatch,
			detail: fmt.Sprintf("got %d fields, want %d", len(fields), fieldCount),
		}
	}

	maxPlayers, err := strconv.ParseUint(fields[2], 10, 31)
	if err != nil {
		return nil, &ParseError{
			Reason: InvalidInteger,
			detail: fmt.Sprintf("max players %q is not an unsigned integer", fields[2]),
		}
	}

	flagField := fields[5]
	if len(flagField) < flagCount {
		return nil, &ParseError{
			Reason: InvalidFlag,
			Pos:    len(flagField),
			detail: fmt.Sprintf("flag string %q is shorter than %d characters", flagField, flagCount),
		}
	}
	var flags [flagCount]bool
	for i := 0; i < flagCount; i++ {
		b, err := parseFlag(flagField[i])
		if err != nil {
			return nil, &ParseError{
				Reason: InvalidFlag,
				Pos:    i,
				detail: fmt.Sprintf("position %d: %v", i, err),
			}
		}
		flags[i] = b
	}

	var players []string
	if fields[6] != "" {
		players = strings.Split(fields[6], ",")
	}

	return &Record{
		Game:            game,
		ProtocolVersion: fields[0],
		GameVersion:     fields[1],
		MaxPlayers:      int(maxPlayers),
		ChannelName:     fields[3],
		DisplayName:     fields[4],
		Locked:          flags[0],
		Passworded:      flags[1],
		Closed:          flags[2],
		Loaded:          flags[3],
		Ladder:          flags[4],
		Players:         players,
		MapName:         fields[7],
		GameMode:        fields[8],
		TunnelAddr:      fields[9],
		LoadedGameID:    fields[10],
		Timestamp:       now,
	}, nil
}

// parseFlag interprets one character of the flags field as a boolean token.
// The accepted tokens match the truthy/falsy set the announcing clients use.
func parseFlag(c byte) (bool, error) {
	switch c {
	case '1', 't', 'T', 'y', 'Y':
		return true, nil
	case '0', 'f', 'F', 'n', 'N':
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized boolean token %q", string(c))
	}
}
