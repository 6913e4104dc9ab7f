// Package wire defines the frames that travel between gamebus processes:
// the handshake envelope exchanged once per connection, and the
// application-message envelope exchanged for the lifetime of the
// connection afterward. Both are plain data types with custom JSON
// marshaling matching the wire shapes fixed by the protocol.
package wire

import (
	"encoding/json"
	"fmt"
)

// SpecifierKind distinguishes the two halves of an API.
type SpecifierKind int

const (
	// SpecifierEmits marks a connection as an emitter of an API: it
	// produces application messages targeting that API name.
	SpecifierEmits SpecifierKind = iota
	// SpecifierHandles marks a connection as a handler of an API: it
	// consumes application messages targeting that API name.
	SpecifierHandles
)

// ApiSpecifier tags a connection with the API it emits or handles.
type ApiSpecifier struct {
	Kind SpecifierKind
	Name string
}

// Emits builds an emitter specifier for the named API.
func Emits(name string) ApiSpecifier { return ApiSpecifier{Kind: SpecifierEmits, Name: name} }

// Handles builds a handler specifier for the named API.
func Handles(name string) ApiSpecifier { return ApiSpecifier{Kind: SpecifierHandles, Name: name} }

// Complement returns the specifier on the opposite side of the same API
// name: the routing target for messages sent by this specifier.
func (a ApiSpecifier) Complement() ApiSpecifier {
	if a.Kind == SpecifierEmits {
		return Handles(a.Name)
	}
	return Emits(a.Name)
}

type apiSpecifierWire struct {
	Emits   *string `json:"Emits,omitempty"`
	Handles *string `json:"Handles,omitempty"`
}

// MarshalJSON renders {"Emits":"name"} or {"Handles":"name"}.
func (a ApiSpecifier) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case SpecifierEmits:
		return json.Marshal(apiSpecifierWire{Emits: &a.Name})
	case SpecifierHandles:
		return json.Marshal(apiSpecifierWire{Handles: &a.Name})
	default:
		return nil, fmt.Errorf("wire: unknown specifier kind %d", a.Kind)
	}
}

// UnmarshalJSON parses {"Emits":"name"} or {"Handles":"name"}.
func (a *ApiSpecifier) UnmarshalJSON(data []byte) error {
	var w apiSpecifierWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Emits != nil:
		*a = Emits(*w.Emits)
	case w.Handles != nil:
		*a = Handles(*w.Handles)
	default:
		return fmt.Errorf("wire: api specifier has neither Emits nor Handles")
	}
	return nil
}

// String renders a human-readable form, e.g. "Emits(minecraft_server)".
func (a ApiSpecifier) String() string {
	if a.Kind == SpecifierEmits {
		return fmt.Sprintf("Emits(%s)", a.Name)
	}
	return fmt.Sprintf("Handles(%s)", a.Name)
}
