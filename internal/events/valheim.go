package events

import (
	"encoding/json"
	"fmt"
)

// ValheimCommandKind discriminates the inbound command variants a
// Valheim supervisor accepts.
type ValheimCommandKind int

const (
	VCStart ValheimCommandKind = iota
	VCStop
	VCQueryHaldor
	VCStatus
)

// ValheimCommand is the tagged union of every inbound Valheim command
// (spec.md §4.4).
type ValheimCommand struct {
	Kind      ValheimCommandKind
	Crossplay bool // valid only when Kind == VCStart
}

type valheimCommandWire struct {
	Start       *startWire `json:"Start,omitempty"`
	Stop        *struct{}  `json:"Stop,omitempty"`
	QueryHaldor *struct{}  `json:"QueryHaldor,omitempty"`
	Status      *struct{}  `json:"Status,omitempty"`
}

type startWire struct {
	Crossplay bool `json:"crossplay"`
}

func (c ValheimCommand) MarshalJSON() ([]byte, error) {
	var w valheimCommandWire
	switch c.Kind {
	case VCStart:
		w.Start = &startWire{Crossplay: c.Crossplay}
	case VCStop:
		w.Stop = &struct{}{}
	case VCQueryHaldor:
		w.QueryHaldor = &struct{}{}
	case VCStatus:
		w.Status = &struct{}{}
	default:
		return nil, fmt.Errorf("events: unknown valheim command kind %d", c.Kind)
	}
	return json.Marshal(w)
}

func (c *ValheimCommand) UnmarshalJSON(data []byte) error {
	var w valheimCommandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Start != nil:
		*c = ValheimCommand{Kind: VCStart, Crossplay: w.Start.Crossplay}
	case w.Stop != nil:
		*c = ValheimCommand{Kind: VCStop}
	case w.QueryHaldor != nil:
		*c = ValheimCommand{Kind: VCQueryHaldor}
	case w.Status != nil:
		*c = ValheimCommand{Kind: VCStatus}
	default:
		return fmt.Errorf("events: valheim command frame matches no known variant")
	}
	return nil
}

// HaldorPoint is one candidate Vendor_BlackForest location.
type HaldorPoint struct {
	X float32 `json:"x"`
	Z float32 `json:"z"`
}

// ValheimEventKind discriminates the outbound event variants a Valheim
// supervisor or its parser pipeline emits.
type ValheimEventKind int

const (
	VEHaldor ValheimEventKind = iota
	VEStartupComplete
	VEPlayerJoined
	VEPlayerQuit
	VEPlayerDied
	VEMobAttack
	VEInfo
	VEStatusReply
)

// ValheimEvent is the tagged union of every outbound Valheim event
// (spec.md §4.4, §4.5).
type ValheimEvent struct {
	Kind ValheimEventKind

	HaldorPoints []HaldorPoint

	JoinCode *string // set only when crossplay StartupComplete carried a code

	Player string

	MobID string

	InfoText string

	StatusRunning bool
	StatusUptime  float64
}

type valheimEventWire struct {
	Haldor          *[]HaldorPoint `json:"Haldor,omitempty"`
	StartupComplete *startupWire   `json:"StartupComplete,omitempty"`
	PlayerJoined    *string        `json:"PlayerJoined,omitempty"`
	PlayerQuit      *string        `json:"PlayerQuit,omitempty"`
	PlayerDied      *string        `json:"PlayerDied,omitempty"`
	MobAttack       *string        `json:"MobAttack,omitempty"`
	Info            *string        `json:"Info,omitempty"`
	StatusReply     *statusWire    `json:"StatusReply,omitempty"`
}

type startupWire struct {
	Code *string `json:"code,omitempty"`
}

func (e ValheimEvent) MarshalJSON() ([]byte, error) {
	var w valheimEventWire
	switch e.Kind {
	case VEHaldor:
		points := e.HaldorPoints
		if points == nil {
			points = []HaldorPoint{}
		}
		w.Haldor = &points
	case VEStartupComplete:
		w.StartupComplete = &startupWire{Code: e.JoinCode}
	case VEPlayerJoined:
		w.PlayerJoined = &e.Player
	case VEPlayerQuit:
		w.PlayerQuit = &e.Player
	case VEPlayerDied:
		w.PlayerDied = &e.Player
	case VEMobAttack:
		w.MobAttack = &e.MobID
	case VEInfo:
		w.Info = &e.InfoText
	case VEStatusReply:
		w.StatusReply = &statusWire{IsRunning: e.StatusRunning, Uptime: e.StatusUptime}
	default:
		return nil, fmt.Errorf("events: unknown valheim event kind %d", e.Kind)
	}
	return json.Marshal(w)
}

func (e *ValheimEvent) UnmarshalJSON(data []byte) error {
	var w valheimEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Haldor != nil:
		*e = ValheimEvent{Kind: VEHaldor, HaldorPoints: *w.Haldor}
	case w.StartupComplete != nil:
		*e = ValheimEvent{Kind: VEStartupComplete, JoinCode: w.StartupComplete.Code}
	case w.PlayerJoined != nil:
		*e = ValheimEvent{Kind: VEPlayerJoined, Player: *w.PlayerJoined}
	case w.PlayerQuit != nil:
		*e = ValheimEvent{Kind: VEPlayerQuit, Player: *w.PlayerQuit}
	case w.PlayerDied != nil:
		*e = ValheimEvent{Kind: VEPlayerDied, Player: *w.PlayerDied}
	case w.MobAttack != nil:
		*e = ValheimEvent{Kind: VEMobAttack, MobID: *w.MobAttack}
	case w.Info != nil:
		*e = ValheimEvent{Kind: VEInfo, InfoText: *w.Info}
	case w.StatusReply != nil:
		*e = ValheimEvent{Kind: VEStatusReply, StatusRunning: w.StatusReply.IsRunning, StatusUptime: w.StatusReply.Uptime}
	default:
		return fmt.Errorf("events: valheim event frame matches no known variant")
	}
	return nil
}

// ValheimInfo builds an Info event for the Valheim side.
func ValheimInfo(text string) ValheimEvent {
	return ValheimEvent{Kind: VEInfo, InfoText: text}
}
