// Package streaming defines the JSON messages exchanged with live viewers
// over the WebSocket.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/truckmatch/routecompare/pkg/core"
)

// Message types sent by the server.
const (
	// TypeFrame carries a complete frame, paths included.
	TypeFrame = "frame"
	// TypeProgress carries only the playback position and markers.
	TypeProgress = "progress"
	TypeAck      = "ack"
)

// TypeCommand is the only message type sent by viewers.
const TypeCommand = "command"

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage answers a command. Error is empty on success.
type AckMessage struct {
	Type  string `json:"type"` // always "ack"
	For   string `json:"for"`  // the command being acknowledged
	Error string `json:"error,omitempty"`
}

// CommandPayload asks the server to run a host command, e.g.
// {"command":"playback:speed","args":["2"]}.
type CommandPayload struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ProgressPayload is the per-tick update between full frames.
type ProgressPayload struct {
	ScenarioID string                      `json:"scenarioId,omitempty"`
	Revision   uint64                      `json:"revision"`
	Playing    bool                        `json:"playing"`
	Progress   float64                     `json:"progress"`
	Speed      float64                     `json:"speed"`
	Markers    map[string]*core.Coordinate `json:"markers"`
	// Traveled holds the length of each traveled prefix; the viewer slices
	// the path it already has.
	Traveled map[string]int `json:"traveled"`
}

// Encode wraps payload in an envelope of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// DecodeCommand parses a viewer message. Messages of any other type are
// rejected.
func DecodeCommand(data []byte) (CommandPayload, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return CommandPayload{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Type != TypeCommand {
		return CommandPayload{}, fmt.Errorf("unexpected message type %q", env.Type)
	}
	var cmd CommandPayload
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		return CommandPayload{}, fmt.Errorf("invalid command payload: %w", err)
	}
	if cmd.Command == "" {
		return CommandPayload{}, fmt.Errorf("command name missing")
	}
	return cmd, nil
}
