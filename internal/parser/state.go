// Package parser implements the line parser pipeline (C5): ordered,
// total functions from one stdout line plus shared mutable state to an
// optional typed event, matching spec.md §4.5's "parse(line, state) →
// option<Event>" contract. Order is load-bearing — see minecraft.go and
// valheim.go for the documented reasons behind each ordering.
package parser

import "sync"

// MinecraftState is the Minecraft connected-players ordered set
// (spec.md §3): each name appears at most once, and it is emptied on
// StartupComplete so that restarts present a clean roster.
type MinecraftState struct {
	mu      sync.Mutex
	players []string
}

// NewMinecraftState builds an empty player set.
func NewMinecraftState() *MinecraftState {
	return &MinecraftState{}
}

// Join adds name if not already present.
func (s *MinecraftState) Join(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p == name {
			return
		}
	}
	s.players = append(s.players, name)
}

// Quit removes name if present.
func (s *MinecraftState) Quit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.players {
		if p == name {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return
		}
	}
}

// Has reports whether name is currently in the set.
func (s *MinecraftState) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p == name {
			return true
		}
	}
	return false
}

// Players returns a snapshot of the current roster, in join order.
func (s *MinecraftState) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.players))
	copy(out, s.players)
	return out
}

// Clear empties the roster, per the StartupComplete reset rule.
func (s *MinecraftState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = nil
}

// valheimPlayer is one entry of the Valheim id -> name map.
type valheimPlayer struct {
	id   string
	name string
}

// ValheimState is the Valheim connected-players map (spec.md §3): id
// maps to name one-to-one. It also tracks whether the server has
// already announced startup and whether crossplay was requested, since
// rules 3/4 of the Valheim parser table are mutually exclusive on that
// bit.
type ValheimState struct {
	mu        sync.Mutex
	players   []valheimPlayer
	started   bool
	crossplay bool
}

// NewValheimState builds an empty Valheim state. crossplay records
// whether the current launch requested the crossplay flag, since rules
// 3/4 of the startup parsers branch on it.
func NewValheimState(crossplay bool) *ValheimState {
	return &ValheimState{crossplay: crossplay}
}

// Crossplay reports whether the current launch requested crossplay.
func (s *ValheimState) Crossplay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crossplay
}

// SetCrossplay updates the crossplay bit, called when a new Start
// command supersedes a previous launch's state.
func (s *ValheimState) SetCrossplay(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crossplay = v
}

// HasStarted reports whether StartupComplete has already fired for the
// current launch.
func (s *ValheimState) HasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// MarkStarted flips the not-yet-running bit once StartupComplete fires.
func (s *ValheimState) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

// ByID looks up the name registered for id.
func (s *ValheimState) ByID(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.id == id {
			return p.name, true
		}
	}
	return "", false
}

// Join registers id/name, assuming id was not already present.
func (s *ValheimState) Join(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = append(s.players, valheimPlayer{id: id, name: name})
}

// Quit removes id if present, returning the name it was registered
// under.
func (s *ValheimState) Quit(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.players {
		if p.id == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return p.name, true
		}
	}
	return "", false
}

// Clear empties the roster and resets the not-yet-running bit, mirror
// of MinecraftState.Clear for a fresh launch.
func (s *ValheimState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = nil
	s.started = false
}
