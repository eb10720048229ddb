package lobby

import (
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/engine"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

type NotificationType string

const (
	NoteRoomUpdated      NotificationType = "RoomUpdated"
	NoteTurnAssigned     NotificationType = "TurnAssigned"
	NoteTurnEnded        NotificationType = "TurnEnded"
	NoteRoundAdvanced    NotificationType = "RoundAdvanced"
	NoteCombatEnded      NotificationType = "CombatEnded"
	NoteAllTurnsComplete NotificationType = "AllTurnsComplete"
	NoteChatMessage      NotificationType = "ChatMessage"
	NoteChannelCreated   NotificationType = "ChannelCreated"
	NoteStatusAlert      NotificationType = "StatusAlert"
	NoteRoomClosed       NotificationType = "RoomClosed"
)

// Audience is either every present participant or a fixed member list. Even
// then, only members who are present receive the notification.
type Audience struct {
	All     bool
	Members []string
}

var everyone = Audience{All: true}

// Notification is one entry of a room's outbound stream. Version increases by
// one per notification, so subscribers can detect gaps after a drop.
type Notification struct {
	RoomID   string
	Version  int64
	Type     NotificationType
	Payload  any
	Audience Audience
}

// Payloads.

// RoomUpdate carries the whole public room state after a roster or phase
// change.
type RoomUpdate struct {
	Reason        string
	ParticipantID string
	Session       SessionView
	Participants  []roster.Participant
}

type TurnChange struct {
	ParticipantID string
	Round         int
	Released      bool
}

type RoundChange struct {
	Round int
}

type CombatEnd struct {
	Reason string
	Round  int
}

type Closed struct {
	Reason string
}

// Reasons carried by RoomUpdate.
const (
	ReasonJoined        = "joined"
	ReasonRejoined      = "rejoined"
	ReasonLeft          = "left"
	ReasonConnected     = "connected"
	ReasonDisconnected  = "disconnected"
	ReasonKicked        = "kicked"
	ReasonStatus        = "status"
	ReasonCombatStarted = "combat_started"
)

// SessionView is the read-only session state. ActiveOffline flags a turn
// holder who has disconnected but still holds the turn.
type SessionView struct {
	Phase         engine.Phase
	Round         int
	Active        string
	ActiveOffline bool
	CombatEnded   bool
	Completed     map[string]bool
}

// View is the room as one participant may see it. Channels only lists the
// channels in that participant's scope.
type View struct {
	ID             string
	Name           string
	Version        int64
	Session        SessionView
	Participants   []roster.Participant
	Channels       []channel.Info
	NumSubscribers int
}

func (l *Lobby) session() SessionView {
	s := l.state.Clone()
	return SessionView{
		Phase:         s.Phase,
		Round:         s.Round,
		Active:        s.Active,
		ActiveOffline: s.Active != "" && !l.roster.IsPresent(s.Active),
		CombatEnded:   s.CombatEnded,
		Completed:     s.Completed,
	}
}

func (l *Lobby) roomUpdate(reason, participantID string) Notification {
	return Notification{
		Type: NoteRoomUpdated,
		Payload: RoomUpdate{
			Reason:        reason,
			ParticipantID: participantID,
			Session:       l.session(),
			Participants:  l.roster.List(),
		},
		Audience: everyone,
	}
}

func (l *Lobby) view(viewer string) View {
	v := View{
		ID:             l.id,
		Name:           l.name,
		Version:        l.version,
		Session:        l.session(),
		Participants:   l.roster.List(),
		NumSubscribers: len(l.clients),
	}
	if _, ok := l.roster.Get(viewer); ok {
		v.Channels = l.chans.ListFor(viewer)
	}
	return v
}

// turnNotes maps engine events to notifications. It must run after l.state has
// been replaced so snapshots reflect the new state.
func (l *Lobby) turnNotes(events []engine.Event) []Notification {
	notes := make([]Notification, 0, len(events))
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtCombatStarted:
			notes = append(notes, l.roomUpdate(ReasonCombatStarted, ""))
		case engine.EvtTurnAssigned:
			notes = append(notes, Notification{
				Type:     NoteTurnAssigned,
				Payload:  TurnChange{ParticipantID: ev.ParticipantID, Round: ev.Round},
				Audience: everyone,
			})
		case engine.EvtTurnEnded:
			notes = append(notes, Notification{
				Type:     NoteTurnEnded,
				Payload:  TurnChange{ParticipantID: ev.ParticipantID, Round: ev.Round, Released: ev.Released},
				Audience: everyone,
			})
		case engine.EvtAllTurnsComplete:
			notes = append(notes, Notification{
				Type:     NoteAllTurnsComplete,
				Payload:  RoundChange{Round: ev.Round},
				Audience: everyone,
			})
		case engine.EvtRoundAdvanced:
			notes = append(notes, Notification{
				Type:     NoteRoundAdvanced,
				Payload:  RoundChange{Round: ev.Round},
				Audience: everyone,
			})
		case engine.EvtCombatEnded:
			notes = append(notes, Notification{
				Type:     NoteCombatEnded,
				Payload:  CombatEnd{Reason: ev.Reason, Round: ev.Round},
				Audience: everyone,
			})
		}
	}
	return notes
}

// chatAudience is the scope of channelID at the time of posting.
func (l *Lobby) chatAudience(channelID string) Audience {
	members, all, _ := l.chans.Members(channelID)
	if all {
		return everyone
	}
	return Audience{Members: members}
}
