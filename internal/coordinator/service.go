// Package coordinator is the entry point external collaborators use to drive
// rooms. Every call is routed by room id to that room's loop; unknown ids fail
// with apperr.ErrRoomNotFound.
package coordinator

import (
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/hub"
	"github.com/DoyleJ11/warroom-backend/internal/lobby"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

type Service struct {
	hub *hub.Hub
}

func New(h *hub.Hub) *Service {
	return &Service{hub: h}
}

// Room returns the live room for roomID.
func (s *Service) Room(roomID string) (*lobby.Lobby, error) {
	return s.hub.Get(roomID)
}

// Do runs an arbitrary command against roomID.
func (s *Service) Do(roomID string, cmd lobby.Command) lobby.Result {
	lb, err := s.hub.Get(roomID)
	if err != nil {
		return lobby.Result{Err: err}
	}
	return lb.Do(cmd)
}

func (s *Service) CreateRoom(name, leaderName string) (roomID, participantID string, err error) {
	lb, leader, err := s.hub.CreateRoom(name, leaderName)
	if err != nil {
		return "", "", err
	}
	return lb.ID(), leader.ID, nil
}

func (s *Service) Join(roomID, displayName string, role roster.Role) (string, error) {
	res := s.Do(roomID, lobby.Command{Type: lobby.CmdJoin, Name: displayName, Role: role})
	return res.Participant.ID, res.Err
}

func (s *Service) Leave(roomID, participantID string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdLeave, By: participantID}).Err
}

func (s *Service) SetPresence(roomID, participantID string, present bool) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdSetPresence, By: participantID, Present: present}).Err
}

func (s *Service) Kick(roomID, by, target string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdKick, By: by, Target: target}).Err
}

func (s *Service) StartCombat(roomID, by string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdStartCombat, By: by}).Err
}

// AssignTurn gives target the active turn. With force the Leader may replace
// a current holder, whose turn is released rather than completed.
func (s *Service) AssignTurn(roomID, by, target string, force bool) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdAssignTurn, By: by, Target: target, Force: force}).Err
}

func (s *Service) EndTurn(roomID, participantID string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdEndTurn, By: participantID}).Err
}

func (s *Service) ReleaseTurn(roomID, by string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdReleaseTurn, By: by}).Err
}

func (s *Service) AdvanceRound(roomID, by string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdAdvanceRound, By: by}).Err
}

func (s *Service) EndCombat(roomID, by, reason string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdEndCombat, By: by, Reason: reason}).Err
}

func (s *Service) PostMessage(roomID, channelID, senderID, text string) (channel.Message, error) {
	res := s.Do(roomID, lobby.Command{Type: lobby.CmdPostMessage, By: senderID, ChannelID: channelID, Text: text})
	return res.Message, res.Err
}

func (s *Service) CreateRestrictedChannel(roomID, by, name string, participantIDs []string) (string, error) {
	res := s.Do(roomID, lobby.Command{Type: lobby.CmdCreateChannel, By: by, Name: name, Members: participantIDs})
	return res.Channel.ID, res.Err
}

func (s *Service) ListChannelsFor(roomID, participantID string) ([]channel.Info, error) {
	res := s.Do(roomID, lobby.Command{Type: lobby.CmdListChannels, By: participantID})
	return res.Channels, res.Err
}

func (s *Service) MarkRead(roomID, participantID, channelID string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdMarkRead, By: participantID, ChannelID: channelID}).Err
}

func (s *Service) History(roomID, participantID, channelID string, beforeSeq int64, limit int) ([]channel.Message, error) {
	res := s.Do(roomID, lobby.Command{
		Type:      lobby.CmdHistory,
		By:        participantID,
		ChannelID: channelID,
		BeforeSeq: beforeSeq,
		Limit:     limit,
	})
	return res.History, res.Err
}

func (s *Service) UpdateStatus(roomID, by, target string, attrs map[string]float64) (roster.Participant, error) {
	res := s.Do(roomID, lobby.Command{Type: lobby.CmdUpdateStatus, By: by, Target: target, Status: attrs})
	return res.Participant, res.Err
}

// Snapshot is the room as viewer sees it, used to replay state after a
// reconnect.
func (s *Service) Snapshot(roomID, viewer string) (lobby.View, error) {
	lb, err := s.hub.Get(roomID)
	if err != nil {
		return lobby.View{}, err
	}
	return lb.State(viewer)
}

func (s *Service) Subscribe(roomID, participantID, connID string) (<-chan lobby.Notification, error) {
	lb, err := s.hub.Get(roomID)
	if err != nil {
		return nil, err
	}
	return lb.Subscribe(participantID, connID)
}

func (s *Service) Unsubscribe(roomID, connID string) {
	if lb, err := s.hub.Get(roomID); err == nil {
		lb.Unsubscribe(connID)
	}
}

// CloseRoom ends the session for everyone. Leader only.
func (s *Service) CloseRoom(roomID, by string) error {
	return s.Do(roomID, lobby.Command{Type: lobby.CmdCloseRoom, By: by}).Err
}
