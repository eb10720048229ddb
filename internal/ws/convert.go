package ws

import (
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/lobby"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
	ptypes "github.com/DoyleJ11/warroom-backend/pkg/types"
)

func toSession(s lobby.SessionView) ptypes.Session {
	return ptypes.Session{
		Phase:         string(s.Phase),
		Round:         s.Round,
		ActiveID:      s.Active,
		ActiveOffline: s.ActiveOffline,
		CombatEnded:   s.CombatEnded,
	}
}

func toParticipants(list []roster.Participant, completed map[string]bool) []ptypes.Participant {
	out := make([]ptypes.Participant, 0, len(list))
	for _, p := range list {
		out = append(out, ptypes.Participant{
			ID:            p.ID,
			DisplayName:   p.DisplayName,
			Role:          string(p.Role),
			Present:       p.Present,
			TurnCompleted: completed[p.ID],
			Status:        p.Status,
		})
	}
	return out
}

func toChannel(c channel.Info) ptypes.Channel {
	return ptypes.Channel{
		ID:         c.ID,
		Name:       c.Name,
		Restricted: c.Restricted,
		Members:    c.Members,
		Unread:     c.Unread,
		LastSeq:    c.LastSeq,
	}
}

func toMessage(m channel.Message) ptypes.Message {
	return ptypes.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		SenderID:  m.SenderID,
		Kind:      string(m.Kind),
		Text:      m.Text,
		Timestamp: m.Timestamp,
		Seq:       m.Seq,
	}
}

func toMessages(msgs []channel.Message) []ptypes.Message {
	out := make([]ptypes.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessage(m))
	}
	return out
}

// ToSnapshot renders a room view for the wire.
func ToSnapshot(v lobby.View) ptypes.Snapshot {
	chans := make([]ptypes.Channel, 0, len(v.Channels))
	for _, c := range v.Channels {
		chans = append(chans, toChannel(c))
	}
	return ptypes.Snapshot{
		RoomID:       v.ID,
		Name:         v.Name,
		Version:      v.Version,
		Session:      toSession(v.Session),
		Participants: toParticipants(v.Participants, v.Session.Completed),
		Channels:     chans,
	}
}

func toNotification(n lobby.Notification) ptypes.Notification {
	out := ptypes.Notification{Version: n.Version, Type: string(n.Type)}
	switch p := n.Payload.(type) {
	case lobby.RoomUpdate:
		out.Payload = ptypes.RoomUpdate{
			Reason:        p.Reason,
			ParticipantID: p.ParticipantID,
			Session:       toSession(p.Session),
			Participants:  toParticipants(p.Participants, p.Session.Completed),
		}
	case lobby.TurnChange:
		out.Payload = ptypes.TurnChange{ParticipantID: p.ParticipantID, Round: p.Round, Released: p.Released}
	case lobby.RoundChange:
		out.Payload = ptypes.RoundChange{Round: p.Round}
	case lobby.CombatEnd:
		out.Payload = ptypes.CombatEnd{Reason: p.Reason, Round: p.Round}
	case channel.Message:
		out.Payload = toMessage(p)
	case channel.Info:
		out.Payload = toChannel(p)
	case roster.Alert:
		out.Payload = ptypes.StatusAlert{
			ParticipantID: p.ParticipantID,
			Attribute:     p.Attribute,
			Level:         p.Level,
			Value:         p.Value,
		}
	case lobby.Closed:
		out.Payload = ptypes.Closed{Reason: p.Reason}
	}
	return out
}
