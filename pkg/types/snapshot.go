package types

import "time"

type Participant struct {
	ID            string             `json:"id"`
	DisplayName   string             `json:"display_name"`
	Role          string             `json:"role"`
	Present       bool               `json:"present"`
	TurnCompleted bool               `json:"turn_completed"`
	Status        map[string]float64 `json:"status,omitempty"`
}

type Session struct {
	Phase         string `json:"phase"` // "narrative" | "combat"
	Round         int    `json:"round"`
	ActiveID      string `json:"active_participant_id,omitempty"`
	ActiveOffline bool   `json:"active_offline,omitempty"`
	CombatEnded   bool   `json:"combat_ended"`
}

type Channel struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Restricted bool     `json:"restricted"`
	Members    []string `json:"members,omitempty"`
	Unread     int      `json:"unread"`
	LastSeq    int64    `json:"last_seq"`
}

type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	SenderID  string    `json:"sender_id,omitempty"`
	Kind      string    `json:"kind"` // "system" | "participant" | "leader"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}

// Snapshot is the room as one participant may see it.
type Snapshot struct {
	RoomID       string        `json:"room_id"`
	Name         string        `json:"name"`
	Version      int64         `json:"version"`
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
	Channels     []Channel     `json:"channels"`
}

type Welcome struct {
	ParticipantID string   `json:"participant_id"`
	Snapshot      Snapshot `json:"snapshot"`
}

type Notification struct {
	Version int64  `json:"version"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notification payloads.

type RoomUpdate struct {
	Reason        string        `json:"reason"`
	ParticipantID string        `json:"participant_id,omitempty"`
	Session       Session       `json:"session"`
	Participants  []Participant `json:"participants"`
}

type TurnChange struct {
	ParticipantID string `json:"participant_id"`
	Round         int    `json:"round"`
	Released      bool   `json:"released,omitempty"`
}

type RoundChange struct {
	Round int `json:"round"`
}

type CombatEnd struct {
	Reason string `json:"reason"`
	Round  int    `json:"round"`
}

type StatusAlert struct {
	ParticipantID string  `json:"participant_id"`
	Attribute     string  `json:"attribute"`
	Level         string  `json:"level"`
	Value         float64 `json:"value"`
}

type Closed struct {
	Reason string `json:"reason"`
}

// Responses.

type Ack struct {
	MessageID string `json:"message_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Pong struct {
	ServerTime time.Time `json:"server_time"`
}

type History struct {
	ChannelID string    `json:"channel_id"`
	Messages  []Message `json:"messages"`
}

// RoomInfo answers GET /rooms/{code}.
type RoomInfo struct {
	Exists       bool          `json:"exists"`
	RoomID       string        `json:"room_id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Phase        string        `json:"phase,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

type CreateRoomRequest struct {
	Name       string `json:"name"`
	LeaderName string `json:"leader_name"`
}

type CreateRoomResponse struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
}
