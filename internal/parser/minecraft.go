package parser

import (
	"regexp"
	"strings"

	"github.com/blockhost/gamebus/internal/events"
)

// None of these carry a leading ^: every real server log line is
// prefixed with its own "[HH:MM:SS] " timestamp (spec.md §8 scenario 3:
// "[12:34:56] [Server thread/INFO]: <alice> hello world"), so the
// pattern must match anywhere in the line rather than only at its
// start. $ still anchors the end, since every rule's payload runs to
// the end of the line.
var (
	mcCommandRe     = regexp.MustCompile(`<([A-Za-z0-9_]+)>\s+!(\w+)\s+(.+)$`)
	mcChatRe        = regexp.MustCompile(`(?:\* )?<([A-Za-z0-9_]+)>\s(.+)$`)
	mcJoinRe        = regexp.MustCompile(`([A-Za-z0-9_]+) joined the game$`)
	mcQuitRe        = regexp.MustCompile(`([A-Za-z0-9_]+) left the game$`)
	mcAdvancementRe = regexp.MustCompile(`([A-Za-z0-9_]+) has (made the advancement|reached the goal|completed the challenge) \[(.+)\]$`)
	mcInfoLineRe    = regexp.MustCompile(`\[Server thread/INFO\]: ([A-Za-z0-9_]+) (.+)$`)
	mcStartupRe     = regexp.MustCompile(`\[Server thread/INFO\]: Done \(.*\)! For help, type "help"$`)
	mcNamedEntityRe = regexp.MustCompile(`\[Server thread/INFO\]: Named entity (\S+) died: (\S+) (.+)$`)
)

// ParseMinecraftLine implements spec.md §4.5's Minecraft parser table.
// Order is load-bearing: rule 1 (command) must precede rule 2 (chat),
// since every command line also matches the looser chat pattern; rule 6
// (death) must be tried after rule 5 (advancement) to avoid
// misclassifying advancement lines as deaths; rule 7 (startup) resets
// the player roster so a restart presents a clean roster.
func ParseMinecraftLine(line string, state *MinecraftState) (events.MinecraftEvent, bool) {
	if m := mcCommandRe.FindStringSubmatch(line); m != nil {
		return events.MinecraftEvent{Kind: events.MCECommand, Player: m[1], CmdCommand: m[2], CmdTarget: m[3]}, true
	}

	if m := mcChatRe.FindStringSubmatch(line); m != nil {
		return events.MinecraftEvent{Kind: events.MCEChat, Player: m[1], ChatMessage: m[2]}, true
	}

	if m := mcJoinRe.FindStringSubmatch(line); m != nil {
		state.Join(m[1])
		return events.MinecraftEvent{Kind: events.MCEPlayerJoined, Player: m[1]}, true
	}

	if m := mcQuitRe.FindStringSubmatch(line); m != nil {
		state.Quit(m[1])
		return events.MinecraftEvent{Kind: events.MCEPlayerQuit, Player: m[1]}, true
	}

	if m := mcAdvancementRe.FindStringSubmatch(line); m != nil {
		return events.MinecraftEvent{Kind: events.MCEPlayerAdvancement, Player: m[1], AdvancementVerb: m[2], AdvancementName: m[3]}, true
	}

	if m := mcInfoLineRe.FindStringSubmatch(line); m != nil {
		player, message := m[1], m[2]
		if !strings.HasPrefix(message, "lost connection") && state.Has(player) {
			return events.MinecraftEvent{Kind: events.MCEPlayerDied, Player: player, DeathMessage: message}, true
		}
	}

	if mcStartupRe.MatchString(line) {
		state.Clear()
		return events.MinecraftEvent{Kind: events.MCEStartupComplete}, true
	}

	if m := mcNamedEntityRe.FindStringSubmatch(line); m != nil {
		return events.MinecraftEvent{Kind: events.MCENamedEntityDied, NamedEntityName: m[2], NamedEntityMsg: m[3]}, true
	}

	return events.MinecraftEvent{}, false
}
