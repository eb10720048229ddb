package ws

import (
	"encoding/json"
	"time"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/lobby"
	"github.com/DoyleJ11/warroom-backend/internal/types"
	ptypes "github.com/DoyleJ11/warroom-backend/pkg/types"
)

// Frames that map to a command with no payload.
var bareCommands = map[string]lobby.CommandType{
	ptypes.ClientStartCombat:  lobby.CmdStartCombat,
	ptypes.ClientEndTurn:      lobby.CmdEndTurn,
	ptypes.ClientReleaseTurn:  lobby.CmdReleaseTurn,
	ptypes.ClientAdvanceRound: lobby.CmdAdvanceRound,
	ptypes.ClientLeave:        lobby.CmdLeave,
	ptypes.ClientCloseRoom:    lobby.CmdCloseRoom,
}

var clock = func() time.Time { return time.Now().UTC() }

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.ErrBadRequest
	}
	return nil
}

// dispatch turns one client frame into a room command and renders the
// outcome for the requester only.
func (c *client) dispatch(cm types.ClientMessage) types.ServerMessage {
	switch cm.Type {
	case ptypes.ClientPing:
		return types.ServerMessage{Type: ptypes.ServerPong, Payload: ptypes.Pong{ServerTime: clock()}}

	case ptypes.ClientRequestSync:
		v, err := c.lb.State(c.pid)
		if err != nil {
			return errorFrame(err)
		}
		return types.ServerMessage{Type: ptypes.ServerFullSync, Payload: ToSnapshot(v)}
	}

	cmd, err := c.command(cm)
	if err != nil {
		return errorFrame(err)
	}
	res := c.lb.Do(cmd)
	if res.Err != nil {
		return errorFrame(res.Err)
	}

	switch cmd.Type {
	case lobby.CmdHistory:
		return types.ServerMessage{
			Type:    ptypes.ServerHistory,
			Payload: ptypes.History{ChannelID: cmd.ChannelID, Messages: toMessages(res.History)},
		}
	case lobby.CmdPostMessage:
		return types.ServerMessage{
			Type:    ptypes.ServerAck,
			Payload: ptypes.Ack{MessageID: res.Message.ID, ChannelID: res.Message.ChannelID},
		}
	case lobby.CmdCreateChannel:
		return types.ServerMessage{Type: ptypes.ServerAck, Payload: ptypes.Ack{ChannelID: res.Channel.ID}}
	}
	return types.ServerMessage{Type: ptypes.ServerAck}
}

func (c *client) command(cm types.ClientMessage) (lobby.Command, error) {
	cmd := lobby.Command{By: c.pid}
	if t, ok := bareCommands[cm.Type]; ok {
		cmd.Type = t
		return cmd, nil
	}

	switch cm.Type {
	case ptypes.ClientAssignTurn:
		var p types.AssignTurn
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Target, cmd.Force = lobby.CmdAssignTurn, p.ParticipantID, p.Force

	case ptypes.ClientEndCombat:
		var p types.EndCombat
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Reason = lobby.CmdEndCombat, p.Reason

	case ptypes.ClientChat:
		var p types.Chat
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		if p.ChannelID == "" {
			p.ChannelID = channel.DefaultID
		}
		cmd.Type, cmd.ChannelID, cmd.Text = lobby.CmdPostMessage, p.ChannelID, p.Text

	case ptypes.ClientCreateChannel:
		var p types.CreateChannel
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Name, cmd.Members = lobby.CmdCreateChannel, p.Name, p.Members

	case ptypes.ClientMarkRead:
		var p types.MarkRead
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.ChannelID = lobby.CmdMarkRead, p.ChannelID

	case ptypes.ClientHistory:
		var p types.History
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.ChannelID, cmd.BeforeSeq, cmd.Limit = lobby.CmdHistory, p.ChannelID, p.BeforeSeq, p.Limit

	case ptypes.ClientUpdateStatus:
		var p types.UpdateStatus
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Target, cmd.Status = lobby.CmdUpdateStatus, p.ParticipantID, p.Status

	case ptypes.ClientKick:
		var p types.Kick
		if err := decode(cm.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Target = lobby.CmdKick, p.ParticipantID

	default:
		return cmd, apperr.ErrUnsupportedCmd
	}
	return cmd, nil
}
