package lobby

import (
	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

// Do sends cmd through the room loop and waits for the outcome. Once the room
// has shut down every call fails with apperr.ErrRoomClosed.
func (l *Lobby) Do(cmd Command) Result {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-l.done:
		return Result{Err: apperr.ErrRoomClosed}
	}
	select {
	case res := <-reply:
		return res
	case <-l.done:
		select {
		case res := <-reply:
			return res
		default:
			return Result{Err: apperr.ErrRoomClosed}
		}
	}
}

func (l *Lobby) Join(name string, role roster.Role) (roster.Participant, error) {
	res := l.Do(Command{Type: CmdJoin, Name: name, Role: role})
	return res.Participant, res.Err
}

func (l *Lobby) Leave(participantID string) error {
	return l.Do(Command{Type: CmdLeave, By: participantID}).Err
}

func (l *Lobby) SetPresence(participantID string, present bool) error {
	return l.Do(Command{Type: CmdSetPresence, By: participantID, Present: present}).Err
}

func (l *Lobby) Kick(by, target string) error {
	return l.Do(Command{Type: CmdKick, By: by, Target: target}).Err
}

func (l *Lobby) UpdateStatus(by, target string, attrs map[string]float64) (roster.Participant, error) {
	res := l.Do(Command{Type: CmdUpdateStatus, By: by, Target: target, Status: attrs})
	return res.Participant, res.Err
}

func (l *Lobby) StartCombat(by string) error {
	return l.Do(Command{Type: CmdStartCombat, By: by}).Err
}

func (l *Lobby) AssignTurn(by, target string, force bool) error {
	return l.Do(Command{Type: CmdAssignTurn, By: by, Target: target, Force: force}).Err
}

func (l *Lobby) EndTurn(participantID string) error {
	return l.Do(Command{Type: CmdEndTurn, By: participantID}).Err
}

func (l *Lobby) ReleaseTurn(by string) error {
	return l.Do(Command{Type: CmdReleaseTurn, By: by}).Err
}

func (l *Lobby) AdvanceRound(by string) error {
	return l.Do(Command{Type: CmdAdvanceRound, By: by}).Err
}

func (l *Lobby) EndCombat(by, reason string) error {
	return l.Do(Command{Type: CmdEndCombat, By: by, Reason: reason}).Err
}

func (l *Lobby) PostMessage(channelID, senderID, text string) (channel.Message, error) {
	res := l.Do(Command{Type: CmdPostMessage, By: senderID, ChannelID: channelID, Text: text})
	return res.Message, res.Err
}

func (l *Lobby) CreateRestrictedChannel(by, name string, memberIDs []string) (channel.Info, error) {
	res := l.Do(Command{Type: CmdCreateChannel, By: by, Name: name, Members: memberIDs})
	return res.Channel, res.Err
}

func (l *Lobby) ListChannelsFor(participantID string) ([]channel.Info, error) {
	res := l.Do(Command{Type: CmdListChannels, By: participantID})
	return res.Channels, res.Err
}

func (l *Lobby) MarkRead(participantID, channelID string) error {
	return l.Do(Command{Type: CmdMarkRead, By: participantID, ChannelID: channelID}).Err
}

func (l *Lobby) History(participantID, channelID string, beforeSeq int64, limit int) ([]channel.Message, error) {
	res := l.Do(Command{Type: CmdHistory, By: participantID, ChannelID: channelID, BeforeSeq: beforeSeq, Limit: limit})
	return res.History, res.Err
}

func (l *Lobby) Close(by string) error {
	return l.Do(Command{Type: CmdCloseRoom, By: by}).Err
}

// Subscribe registers a connection of participantID and returns the channel
// its notifications arrive on. The channel is closed when the subscriber is
// dropped, kicked or the room shuts down.
func (l *Lobby) Subscribe(participantID, connID string) (<-chan Notification, error) {
	return l.subscribe(Subscribe{ParticipantID: participantID, ConnID: connID})
}

// Attach subscribes a live connection and marks participantID present.
// Pair it with Detach so presence follows the participant's last connection.
func (l *Lobby) Attach(participantID, connID string) (<-chan Notification, error) {
	return l.subscribe(Subscribe{ParticipantID: participantID, ConnID: connID, MarkPresent: true})
}

func (l *Lobby) subscribe(msg Subscribe) (<-chan Notification, error) {
	msg.Outbox = make(chan Notification, l.outboxSize)
	msg.Reply = make(chan error, 1)
	select {
	case l.inbox <- msg:
	case <-l.done:
		return nil, apperr.ErrRoomClosed
	}
	select {
	case err := <-msg.Reply:
		if err != nil {
			return nil, err
		}
		return msg.Outbox, nil
	case <-l.done:
		return nil, apperr.ErrRoomClosed
	}
}

// Detach drops connID and marks participantID absent if that was its last
// connection. An empty connID only checks for remaining connections.
func (l *Lobby) Detach(participantID, connID string) {
	select {
	case l.inbox <- Detach{ParticipantID: participantID, ConnID: connID}:
	case <-l.done:
	}
}

func (l *Lobby) Unsubscribe(connID string) {
	select {
	case l.inbox <- Unsubscribe{ConnID: connID}:
	case <-l.done:
	}
}

// State returns the room as viewer sees it.
func (l *Lobby) State(viewer string) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Viewer: viewer, Reply: reply}:
	case <-l.done:
		return View{}, apperr.ErrRoomClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, apperr.ErrRoomClosed
	}
}

// Stop shuts the room down, announcing reason first if it is non-empty, and
// waits for the loop to exit.
func (l *Lobby) Stop(reason string) {
	select {
	case l.inbox <- Shutdown{Reason: reason}:
	case <-l.done:
	}
	<-l.done
}
