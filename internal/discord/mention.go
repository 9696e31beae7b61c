// internal/discord/mention.go
package discord

import (
	"fmt"
	"strings"
)

// Discord wraps channel, role, and user references in mention syntax:
// <#id>, <@&id>, <@!id>. These helpers convert between mention strings and
// bare snowflake IDs.

// NotMentionError is returned when a string does not follow the mention syntax
// for the requested reference type.
type NotMentionError struct {
	Input string
	Kind  string
}

func (e *NotMentionError) Error() string {
	return fmt.Sprintf("%q is not a Discord %s mention", e.Input, e.Kind)
}

func parseMention(s, marker, kind string) (string, error) {
	inner, ok := strings.CutPrefix(s, "<"+marker)
	if !ok {
		return "", &NotMentionError{Input: s, Kind: kind}
	}
	id, ok := strings.CutSuffix(inner, ">")
	if !ok || id == "" {
		return "", &NotMentionError{Input: s, Kind: kind}
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return "", &NotMentionError{Input: s, Kind: kind}
		}
	}
	return id, nil
}

// ParseChannelMention extracts the channel ID from a <#id> mention.
func ParseChannelMention(s string) (string, error) {
	return parseMention(s, "#", "channel")
}

// ParseRoleMention extracts the role ID from a <@&id> mention.
func ParseRoleMention(s string) (string, error) {
	return parseMention(s, "@&", "role")
}

// ParseUserMention extracts the user ID from a <@!id> mention.
func ParseUserMention(s string) (string, error) {
	return parseMention(s, "@!", "user")
}

// FormatChannelMention renders a channel ID as a <#id> mention.
func FormatChannelMention(id string) string {
	return "<#" + id + ">"
}

// FormatRoleMention renders a role ID as a <@&id> mention.
func FormatRoleMention(id string) string {
	return "<@&" + id + ">"
}

// FormatUserMention renders a user ID as a <@!id> mention.
func FormatUserMention(id string) string {
	return "<@!" + id + ">"
}
