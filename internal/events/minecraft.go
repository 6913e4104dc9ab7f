// Package events defines the typed payloads carried as the opaque
// content string of an application envelope for the Minecraft and
// Valheim supervisors, on both the inbound (command) and outbound
// (scraped/derived) side. Each kind follows the same tagged-union
// shape and custom-JSON pattern as package wire's handshake and
// specifier types, so a Discord-facing peer and a supervisor agree on
// the wire shape without sharing Go types.
package events

import (
	"encoding/json"
	"fmt"
)

// MinecraftCommandKind discriminates the inbound command variants a
// Minecraft supervisor accepts.
type MinecraftCommandKind int

const (
	MCStart MinecraftCommandKind = iota
	MCStop
	MCSave
	MCChat
	MCTp
	MCTpLoc
	MCQueryPlayers
	MCBackupWorld
	MCCommand
	MCWhitelist
	MCStatus
)

// TpLocation is the realm/x/y/z payload of TpLoc.
type TpLocation struct {
	Realm string  `json:"realm"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// MinecraftCommand is the tagged union of every inbound Minecraft
// command (spec.md §4.4).
type MinecraftCommand struct {
	Kind MinecraftCommandKind

	ChatUser string
	ChatText string

	TpPlayer string
	TpTarget string

	TpLocPlayer string
	TpLocTarget TpLocation

	CommandText string

	WhitelistAction string // "add" or "remove"
	WhitelistPlayer string
}

type minecraftCommandWire struct {
	Start        *struct{}   `json:"Start,omitempty"`
	Stop         *struct{}   `json:"Stop,omitempty"`
	Save         *struct{}   `json:"Save,omitempty"`
	Chat         *chatWire   `json:"Chat,omitempty"`
	Tp           *tpWire     `json:"Tp,omitempty"`
	TpLoc        *tpLocWire  `json:"TpLoc,omitempty"`
	QueryPlayers *struct{}   `json:"QueryPlayers,omitempty"`
	BackupWorld  *struct{}   `json:"BackupWorld,omitempty"`
	Command      *string     `json:"Command,omitempty"`
	Whitelist    *whitelist  `json:"Whitelist,omitempty"`
	Status       *struct{}   `json:"Status,omitempty"`
}

type chatWire struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type tpWire struct {
	Player string `json:"player"`
	Target string `json:"target"`
}

type tpLocWire struct {
	Player string     `json:"player"`
	Target TpLocation `json:"target"`
}

type whitelist struct {
	Action string `json:"action"`
	Player string `json:"player"`
}

func (c MinecraftCommand) MarshalJSON() ([]byte, error) {
	var w minecraftCommandWire
	switch c.Kind {
	case MCStart:
		w.Start = &struct{}{}
	case MCStop:
		w.Stop = &struct{}{}
	case MCSave:
		w.Save = &struct{}{}
	case MCChat:
		w.Chat = &chatWire{User: c.ChatUser, Text: c.ChatText}
	case MCTp:
		w.Tp = &tpWire{Player: c.TpPlayer, Target: c.TpTarget}
	case MCTpLoc:
		w.TpLoc = &tpLocWire{Player: c.TpLocPlayer, Target: c.TpLocTarget}
	case MCQueryPlayers:
		w.QueryPlayers = &struct{}{}
	case MCBackupWorld:
		w.BackupWorld = &struct{}{}
	case MCCommand:
		w.Command = &c.CommandText
	case MCWhitelist:
		w.Whitelist = &whitelist{Action: c.WhitelistAction, Player: c.WhitelistPlayer}
	case MCStatus:
		w.Status = &struct{}{}
	default:
		return nil, fmt.Errorf("events: unknown minecraft command kind %d", c.Kind)
	}
	return json.Marshal(w)
}

func (c *MinecraftCommand) UnmarshalJSON(data []byte) error {
	var w minecraftCommandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Start != nil:
		*c = MinecraftCommand{Kind: MCStart}
	case w.Stop != nil:
		*c = MinecraftCommand{Kind: MCStop}
	case w.Save != nil:
		*c = MinecraftCommand{Kind: MCSave}
	case w.Chat != nil:
		*c = MinecraftCommand{Kind: MCChat, ChatUser: w.Chat.User, ChatText: w.Chat.Text}
	case w.Tp != nil:
		*c = MinecraftCommand{Kind: MCTp, TpPlayer: w.Tp.Player, TpTarget: w.Tp.Target}
	case w.TpLoc != nil:
		*c = MinecraftCommand{Kind: MCTpLoc, TpLocPlayer: w.TpLoc.Player, TpLocTarget: w.TpLoc.Target}
	case w.QueryPlayers != nil:
		*c = MinecraftCommand{Kind: MCQueryPlayers}
	case w.BackupWorld != nil:
		*c = MinecraftCommand{Kind: MCBackupWorld}
	case w.Command != nil:
		*c = MinecraftCommand{Kind: MCCommand, CommandText: *w.Command}
	case w.Whitelist != nil:
		*c = MinecraftCommand{Kind: MCWhitelist, WhitelistAction: w.Whitelist.Action, WhitelistPlayer: w.Whitelist.Player}
	case w.Status != nil:
		*c = MinecraftCommand{Kind: MCStatus}
	default:
		return fmt.Errorf("events: minecraft command frame matches no known variant")
	}
	return nil
}

// MinecraftEventKind discriminates the outbound event variants a
// Minecraft supervisor or its parser pipeline emits.
type MinecraftEventKind int

const (
	MCEPlayers MinecraftEventKind = iota
	MCEBackupComplete
	MCEInfo
	MCEPlayerJoined
	MCEPlayerQuit
	MCEPlayerAdvancement
	MCEPlayerDied
	MCEStartupComplete
	MCENamedEntityDied
	MCEChat
	MCECommand
	MCEStatusReply
)

// MinecraftEvent is the tagged union of every outbound Minecraft event
// (spec.md §4.4, §4.5).
type MinecraftEvent struct {
	Kind MinecraftEventKind

	Players []string

	BackupDir   string
	BackupBytes int64

	InfoText string

	Player string

	AdvancementVerb string
	AdvancementName string

	DeathMessage string

	NamedEntityName string
	NamedEntityMsg  string

	ChatMessage string

	CmdCommand string
	CmdTarget  string

	StatusRunning bool
	StatusUptime  float64
}

type minecraftEventWire struct {
	Players          *[]string         `json:"Players,omitempty"`
	BackupComplete   *backupWire       `json:"BackupComplete,omitempty"`
	Info             *string           `json:"Info,omitempty"`
	PlayerJoined     *string           `json:"PlayerJoined,omitempty"`
	PlayerQuit       *string           `json:"PlayerQuit,omitempty"`
	PlayerAdvancement *advancementWire `json:"PlayerAdvancement,omitempty"`
	PlayerDied       *deathWire        `json:"PlayerDied,omitempty"`
	StartupComplete  json.RawMessage   `json:"StartupComplete,omitempty"`
	NamedEntityDied  *namedEntityWire  `json:"NamedEntityDied,omitempty"`
	Chat             *chatEventWire    `json:"Chat,omitempty"`
	Command          *commandEventWire `json:"Command,omitempty"`
	StatusReply      *statusWire       `json:"StatusReply,omitempty"`
}

type backupWire struct {
	Dir   string `json:"dir"`
	Bytes int64  `json:"bytes"`
}

type advancementWire struct {
	Player string `json:"player"`
	Verb   string `json:"verb"`
	Name   string `json:"name"`
}

type deathWire struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}

type namedEntityWire struct {
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

type chatEventWire struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}

type commandEventWire struct {
	Player  string `json:"player"`
	Command string `json:"command"`
	Target  string `json:"target"`
}

type statusWire struct {
	IsRunning bool    `json:"is_running"`
	Uptime    float64 `json:"uptime"`
}

func (e MinecraftEvent) MarshalJSON() ([]byte, error) {
	var w minecraftEventWire
	switch e.Kind {
	case MCEPlayers:
		players := e.Players
		if players == nil {
			players = []string{}
		}
		w.Players = &players
	case MCEBackupComplete:
		w.BackupComplete = &backupWire{Dir: e.BackupDir, Bytes: e.BackupBytes}
	case MCEInfo:
		w.Info = &e.InfoText
	case MCEPlayerJoined:
		w.PlayerJoined = &e.Player
	case MCEPlayerQuit:
		w.PlayerQuit = &e.Player
	case MCEPlayerAdvancement:
		w.PlayerAdvancement = &advancementWire{Player: e.Player, Verb: e.AdvancementVerb, Name: e.AdvancementName}
	case MCEPlayerDied:
		w.PlayerDied = &deathWire{Player: e.Player, Message: e.DeathMessage}
	case MCEStartupComplete:
		w.StartupComplete = json.RawMessage("null")
	case MCENamedEntityDied:
		w.NamedEntityDied = &namedEntityWire{Name: e.NamedEntityName, Msg: e.NamedEntityMsg}
	case MCEChat:
		w.Chat = &chatEventWire{Player: e.Player, Message: e.ChatMessage}
	case MCECommand:
		w.Command = &commandEventWire{Player: e.Player, Command: e.CmdCommand, Target: e.CmdTarget}
	case MCEStatusReply:
		w.StatusReply = &statusWire{IsRunning: e.StatusRunning, Uptime: e.StatusUptime}
	default:
		return nil, fmt.Errorf("events: unknown minecraft event kind %d", e.Kind)
	}
	return json.Marshal(w)
}

func (e *MinecraftEvent) UnmarshalJSON(data []byte) error {
	var w minecraftEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Players != nil:
		*e = MinecraftEvent{Kind: MCEPlayers, Players: *w.Players}
	case w.BackupComplete != nil:
		*e = MinecraftEvent{Kind: MCEBackupComplete, BackupDir: w.BackupComplete.Dir, BackupBytes: w.BackupComplete.Bytes}
	case w.Info != nil:
		*e = MinecraftEvent{Kind: MCEInfo, InfoText: *w.Info}
	case w.PlayerJoined != nil:
		*e = MinecraftEvent{Kind: MCEPlayerJoined, Player: *w.PlayerJoined}
	case w.PlayerQuit != nil:
		*e = MinecraftEvent{Kind: MCEPlayerQuit, Player: *w.PlayerQuit}
	case w.PlayerAdvancement != nil:
		*e = MinecraftEvent{Kind: MCEPlayerAdvancement, Player: w.PlayerAdvancement.Player, AdvancementVerb: w.PlayerAdvancement.Verb, AdvancementName: w.PlayerAdvancement.Name}
	case w.PlayerDied != nil:
		*e = MinecraftEvent{Kind: MCEPlayerDied, Player: w.PlayerDied.Player, DeathMessage: w.PlayerDied.Message}
	case w.StartupComplete != nil:
		*e = MinecraftEvent{Kind: MCEStartupComplete}
	case w.NamedEntityDied != nil:
		*e = MinecraftEvent{Kind: MCENamedEntityDied, NamedEntityName: w.NamedEntityDied.Name, NamedEntityMsg: w.NamedEntityDied.Msg}
	case w.Chat != nil:
		*e = MinecraftEvent{Kind: MCEChat, Player: w.Chat.Player, ChatMessage: w.Chat.Message}
	case w.Command != nil:
		*e = MinecraftEvent{Kind: MCECommand, Player: w.Command.Player, CmdCommand: w.Command.Command, CmdTarget: w.Command.Target}
	case w.StatusReply != nil:
		*e = MinecraftEvent{Kind: MCEStatusReply, StatusRunning: w.StatusReply.IsRunning, StatusUptime: w.StatusReply.Uptime}
	default:
		return fmt.Errorf("events: minecraft event frame matches no known variant")
	}
	return nil
}

// Info builds an Info event, the universal "tell the user what went
// wrong" carrier required by spec.md §7's error-handling policy.
func Info(text string) MinecraftEvent {
	return MinecraftEvent{Kind: MCEInfo, InfoText: text}
}
