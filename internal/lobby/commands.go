package lobby

import (
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/engine"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

type CommandType string

const (
	CmdJoin          CommandType = "Join"
	CmdLeave         CommandType = "Leave"
	CmdSetPresence   CommandType = "SetPresence"
	CmdKick          CommandType = "Kick"
	CmdUpdateStatus  CommandType = "UpdateStatus"
	CmdStartCombat   CommandType = "StartCombat"
	CmdAssignTurn    CommandType = "AssignTurn"
	CmdEndTurn       CommandType = "EndTurn"
	CmdReleaseTurn   CommandType = "ReleaseTurn"
	CmdAdvanceRound  CommandType = "AdvanceRound"
	CmdEndCombat     CommandType = "EndCombat"
	CmdPostMessage   CommandType = "PostMessage"
	CmdCreateChannel CommandType = "CreateChannel"
	CmdMarkRead      CommandType = "MarkRead"
	CmdHistory       CommandType = "History"
	CmdListChannels  CommandType = "ListChannels"
	CmdCloseRoom     CommandType = "CloseRoom"
)

// Command is one request to the room. By is the acting participant; the other
// fields are read according to Type.
type Command struct {
	Type      CommandType
	By        string
	Target    string
	Name      string
	Role      roster.Role
	Present   bool
	Force     bool
	Reason    string
	ChannelID string
	Text      string
	Members   []string
	Status    map[string]float64
	BeforeSeq int64
	Limit     int
}

type Result struct {
	Participant roster.Participant
	Message     channel.Message
	Channel     channel.Info
	Channels    []channel.Info
	History     []channel.Message
	Err         error
}

func fail(err error) (Result, []Notification) { return Result{Err: err}, nil }

// seats exposes the roster to the turn engine.
type seats struct{ r *roster.Roster }

func (s seats) Seat(id string) (engine.Seat, bool) {
	p, ok := s.r.Get(id)
	if !ok {
		return engine.Seat{}, false
	}
	return engine.Seat{ID: p.ID, Leader: p.Role == roster.RoleLeader, Present: p.Present}, true
}

func (s seats) Seats() []engine.Seat {
	list := s.r.List()
	out := make([]engine.Seat, 0, len(list))
	for _, p := range list {
		out = append(out, engine.Seat{ID: p.ID, Leader: p.Role == roster.RoleLeader, Present: p.Present})
	}
	return out
}

// apply validates and executes cmd. A rejected command returns an error and
// no notifications, and leaves every part of the room untouched.
func (l *Lobby) apply(cmd Command) (Result, []Notification) {
	switch cmd.Type {
	case CmdJoin:
		p, revived, err := l.roster.Join(cmd.Name, cmd.Role)
		if err != nil {
			return fail(err)
		}
		reason := ReasonJoined
		if revived {
			reason = ReasonRejoined
		}
		return Result{Participant: p}, []Notification{l.roomUpdate(reason, p.ID)}

	case CmdLeave:
		changed, err := l.roster.Leave(cmd.By)
		if err != nil {
			return fail(err)
		}
		l.dropParticipant(cmd.By)
		if !changed {
			return Result{}, nil
		}
		return Result{}, []Notification{l.roomUpdate(ReasonLeft, cmd.By)}

	case CmdSetPresence:
		changed, err := l.roster.SetPresence(cmd.By, cmd.Present)
		if err != nil || !changed {
			return Result{Err: err}, nil
		}
		reason := ReasonDisconnected
		if cmd.Present {
			reason = ReasonConnected
		}
		return Result{}, []Notification{l.roomUpdate(reason, cmd.By)}

	case CmdKick:
		if !l.roster.IsLeader(cmd.By) {
			return fail(apperr.ErrNotLeader)
		}
		p, err := l.roster.Kick(cmd.Target)
		if err != nil {
			return fail(err)
		}
		events, next := engine.Forget(l.state, p.ID)
		l.state = next
		l.dropParticipant(p.ID)
		notes := append([]Notification{l.roomUpdate(ReasonKicked, p.ID)}, l.turnNotes(events)...)
		return Result{Participant: p}, notes

	case CmdUpdateStatus:
		target := cmd.Target
		if target == "" {
			target = cmd.By
		}
		if target != cmd.By && !l.roster.IsLeader(cmd.By) {
			return fail(apperr.ErrNotLeader)
		}
		p, alerts, err := l.roster.UpdateStatus(target, cmd.Status)
		if err != nil {
			return fail(err)
		}
		notes := []Notification{l.roomUpdate(ReasonStatus, p.ID)}
		for _, a := range alerts {
			notes = append(notes, Notification{Type: NoteStatusAlert, Payload: a, Audience: everyone})
		}
		return Result{Participant: p}, notes

	case CmdStartCombat, CmdAssignTurn, CmdEndTurn, CmdReleaseTurn, CmdAdvanceRound, CmdEndCombat:
		events, next, err := engine.Apply(l.state, seats{l.roster}, engine.Command{
			Type:   engine.CommandType(cmd.Type),
			By:     cmd.By,
			Target: cmd.Target,
			Force:  cmd.Force,
			Reason: cmd.Reason,
		})
		if err != nil {
			return fail(err)
		}
		l.state = next
		if engine.ContainsEvent(events, engine.EvtCombatEnded) {
			l.log.Info("combat ended", zap.Int("round", next.Round))
		}
		return Result{}, l.turnNotes(events)

	case CmdPostMessage:
		sender, ok := l.roster.Get(cmd.By)
		if !ok {
			return fail(apperr.ErrSenderNotInScope)
		}
		kind := channel.KindParticipant
		if sender.Role == roster.RoleLeader {
			kind = channel.KindLeader
		}
		msg, err := l.chans.Post(cmd.ChannelID, sender.ID, sender.Present, cmd.Text, kind)
		if err != nil {
			return fail(err)
		}
		return Result{Message: msg}, []Notification{{
			Type:     NoteChatMessage,
			Payload:  msg,
			Audience: l.chatAudience(msg.ChannelID),
		}}

	case CmdCreateChannel:
		if !l.roster.IsLeader(cmd.By) {
			return fail(apperr.ErrNotLeader)
		}
		if err := l.checkMembers(cmd.Members); err != nil {
			return fail(err)
		}
		info, err := l.chans.CreateRestricted(cmd.Name, cmd.Members)
		if err != nil {
			return fail(err)
		}
		return Result{Channel: info}, []Notification{{
			Type:     NoteChannelCreated,
			Payload:  info,
			Audience: Audience{Members: info.Members},
		}}

	// Reads and per-reader bookkeeping: nothing shared changes, nothing is
	// broadcast.
	case CmdMarkRead:
		if _, ok := l.roster.Get(cmd.By); !ok {
			return fail(apperr.ErrUnknownParticipant)
		}
		return Result{Err: l.chans.MarkRead(cmd.By, cmd.ChannelID)}, nil

	case CmdHistory:
		if _, ok := l.roster.Get(cmd.By); !ok {
			return fail(apperr.ErrUnknownParticipant)
		}
		msgs, err := l.chans.History(cmd.By, cmd.ChannelID, cmd.BeforeSeq, cmd.Limit)
		return Result{History: msgs, Err: err}, nil

	case CmdListChannels:
		if _, ok := l.roster.Get(cmd.By); !ok {
			return fail(apperr.ErrUnknownParticipant)
		}
		return Result{Channels: l.chans.ListFor(cmd.By)}, nil

	case CmdCloseRoom:
		if !l.roster.IsLeader(cmd.By) {
			return fail(apperr.ErrNotLeader)
		}
		return Result{}, []Notification{{Type: NoteRoomClosed, Payload: Closed{Reason: "closed"}, Audience: everyone}}

	default:
		return fail(apperr.ErrUnsupportedCmd)
	}
}

// checkMembers requires at least two distinct ids, each naming a roster record.
func (l *Lobby) checkMembers(ids []string) error {
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			seen[id] = true
		}
	}
	if len(seen) < 2 {
		return apperr.ErrEmptyScope
	}
	for id := range seen {
		if _, ok := l.roster.Get(id); !ok {
			return apperr.ErrUnknownParticipant
		}
	}
	return nil
}
