package types

import "encoding/json"

type ClientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Client payloads.

type AssignTurn struct {
	ParticipantID string `json:"participant_id"`
	Force         bool   `json:"force"`
}

type EndCombat struct {
	Reason string `json:"reason"`
}

type Chat struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

type CreateChannel struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type MarkRead struct {
	ChannelID string `json:"channel_id"`
}

type History struct {
	ChannelID string `json:"channel_id"`
	BeforeSeq int64  `json:"before_seq"`
	Limit     int    `json:"limit"`
}

type UpdateStatus struct {
	ParticipantID string             `json:"participant_id"`
	Status        map[string]float64 `json:"status"`
}

type Kick struct {
	ParticipantID string `json:"participant_id"`
}
