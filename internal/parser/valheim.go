package parser

import (
	"regexp"

	"github.com/blockhost/gamebus/internal/events"
)

// None of these carry a leading ^: real log lines prefix every one of
// them with a log-level/category tag the game process writes itself
// (e.g. "[Info   :Network] Got character ZDOID from ..."), so the
// pattern must match anywhere in the line, not just at its start.
// vhConnectedRe is the one exception — its own timestamp is part of
// the match, so it is anchored at the start on purpose.
var (
	vhZDOIDRe     = regexp.MustCompile(`Got character ZDOID from (\S+) : (\S+):(-?\d+)$`)
	vhAbandonedRe = regexp.MustCompile(`Destroying abandoned non persistent zdo .* owner (\S+?)(?::-?\d+)?$`)
	vhSessionRe   = regexp.MustCompile(`Session "(.+)" with join code (\d{6}) and IP (\S+):2456 is active with \d+ player\(s\)$`)
	vhConnectedRe = regexp.MustCompile(`^.+: Game server connected$`)
	vhMobRe       = regexp.MustCompile(`Random event set: (\S+)$`)
)

// ParseValheimLine implements spec.md §4.5's Valheim parser table.
// Rules 3 and 4 are mutually exclusive via state's crossplay bit, so
// both are always attempted but at most one can ever match a given
// launch's transcript.
func ParseValheimLine(line string, state *ValheimState) (events.ValheimEvent, bool) {
	if m := vhZDOIDRe.FindStringSubmatch(line); m != nil {
		player, id := m[1], m[2]
		if _, known := state.ByID(id); known {
			return events.ValheimEvent{Kind: events.VEPlayerDied, Player: player}, true
		}
		state.Join(id, player)
		return events.ValheimEvent{Kind: events.VEPlayerJoined, Player: player}, true
	}

	if m := vhAbandonedRe.FindStringSubmatch(line); m != nil {
		id := m[1]
		if name, known := state.Quit(id); known {
			return events.ValheimEvent{Kind: events.VEPlayerQuit, Player: name}, true
		}
		return events.ValheimEvent{}, false
	}

	if m := vhSessionRe.FindStringSubmatch(line); m != nil {
		if !state.HasStarted() && state.Crossplay() {
			state.Clear()
			state.MarkStarted()
			code := m[2]
			return events.ValheimEvent{Kind: events.VEStartupComplete, JoinCode: &code}, true
		}
	}

	if vhConnectedRe.MatchString(line) {
		if !state.HasStarted() && !state.Crossplay() {
			state.Clear()
			state.MarkStarted()
			return events.ValheimEvent{Kind: events.VEStartupComplete}, true
		}
	}

	if m := vhMobRe.FindStringSubmatch(line); m != nil {
		return events.ValheimEvent{Kind: events.VEMobAttack, MobID: m[1]}, true
	}

	return events.ValheimEvent{}, false
}
