package coordinator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/engine"
	"github.com/DoyleJ11/warroom-backend/internal/hub"
	"github.com/DoyleJ11/warroom-backend/internal/lobby"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(hub.NewHub(ctx, hub.Options{}))
}

type session struct {
	svc                  *Service
	room                 string
	aldric, kira, vesper string
}

func newSession(t *testing.T) session {
	t.Helper()
	svc := newService(t)
	room, aldric, err := svc.CreateRoom("R1", "Aldric")
	require.NoError(t, err)
	kira, err := svc.Join(room, "Kira", roster.RolePlayer)
	require.NoError(t, err)
	vesper, err := svc.Join(room, "Vesper", roster.RolePlayer)
	require.NoError(t, err)
	return session{svc: svc, room: room, aldric: aldric, kira: kira, vesper: vesper}
}

func TestUnknownRoom(t *testing.T) {
	svc := newService(t)

	_, err := svc.Join("SF-NONE", "Kira", roster.RolePlayer)
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)
	assert.ErrorIs(t, svc.StartCombat("SF-NONE", "x"), apperr.ErrRoomNotFound)
	_, err = svc.Snapshot("SF-NONE", "")
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)
	_, err = svc.Subscribe("SF-NONE", "x", "c1")
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)
}

func TestScenarioTurnAssignment(t *testing.T) {
	s := newSession(t)

	require.NoError(t, s.svc.StartCombat(s.room, s.aldric))
	view, err := s.svc.Snapshot(s.room, "")
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseCombat, view.Session.Phase)
	assert.Equal(t, 1, view.Session.Round)

	require.NoError(t, s.svc.AssignTurn(s.room, s.aldric, s.kira, false))
	assert.ErrorIs(t, s.svc.AssignTurn(s.room, s.aldric, s.vesper, false), apperr.ErrTurnAlreadyActive)
	require.NoError(t, s.svc.EndTurn(s.room, s.kira))
	require.NoError(t, s.svc.AssignTurn(s.room, s.aldric, s.vesper, false))
}

func TestScenarioDisconnectedHolder(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.svc.StartCombat(s.room, s.aldric))
	require.NoError(t, s.svc.AssignTurn(s.room, s.aldric, s.vesper, false))

	require.NoError(t, s.svc.SetPresence(s.room, s.vesper, false))
	view, err := s.svc.Snapshot(s.room, "")
	require.NoError(t, err)
	assert.Equal(t, s.vesper, view.Session.Active)
	assert.True(t, view.Session.ActiveOffline)

	assert.ErrorIs(t, s.svc.AssignTurn(s.room, s.aldric, s.vesper, false), apperr.ErrTurnAlreadyActive)
	require.NoError(t, s.svc.AssignTurn(s.room, s.aldric, s.kira, true))

	view, err = s.svc.Snapshot(s.room, "")
	require.NoError(t, err)
	assert.Equal(t, s.kira, view.Session.Active)
	assert.False(t, view.Session.Completed[s.vesper], "a released turn is not completed")
}

func TestScenarioRestrictedChannel(t *testing.T) {
	s := newSession(t)

	_, err := s.svc.CreateRestrictedChannel(s.room, s.kira, "secret", []string{s.aldric, s.kira})
	assert.ErrorIs(t, err, apperr.ErrNotLeader)

	id, err := s.svc.CreateRestrictedChannel(s.room, s.aldric, "secret", []string{s.aldric, s.kira})
	require.NoError(t, err)
	assert.Equal(t, "secret_1", id)

	_, err = s.svc.PostMessage(s.room, id, s.vesper, "hi")
	assert.ErrorIs(t, err, apperr.ErrSenderNotInScope)
	msg, err := s.svc.PostMessage(s.room, id, s.kira, "the gate is open")
	require.NoError(t, err)
	assert.Equal(t, channel.KindParticipant, msg.Kind)

	vesperChans, err := s.svc.ListChannelsFor(s.room, s.vesper)
	require.NoError(t, err)
	for _, c := range vesperChans {
		assert.NotEqual(t, id, c.ID)
	}

	aldricChans, err := s.svc.ListChannelsFor(s.room, s.aldric)
	require.NoError(t, err)
	require.Len(t, aldricChans, 2)
	assert.Equal(t, 2, aldricChans[1].Unread, "welcome and kira's message")
	require.NoError(t, s.svc.MarkRead(s.room, s.aldric, id))
	aldricChans, err = s.svc.ListChannelsFor(s.room, s.aldric)
	require.NoError(t, err)
	assert.Zero(t, aldricChans[1].Unread)

	history, err := s.svc.History(s.room, s.aldric, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 2, "welcome and kira's message")
	assert.Equal(t, channel.KindSystem, history[0].Kind)
}

func TestScenarioPlayerCannotAdvance(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.svc.StartCombat(s.room, s.aldric))
	before, err := s.svc.Snapshot(s.room, "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.svc.AdvanceRound(s.room, s.kira), apperr.ErrNotLeader)

	after, err := s.svc.Snapshot(s.room, "")
	require.NoError(t, err)
	assert.Equal(t, before.Session, after.Session)
	assert.Equal(t, before.Version, after.Version)
}

func TestCapacityBoundary(t *testing.T) {
	svc := newService(t)
	room, _, err := svc.CreateRoom("full house", "Aldric")
	require.NoError(t, err)

	for i := 0; i < roster.DefaultCapacity; i++ {
		_, err := svc.Join(room, fmt.Sprintf("player %d", i), roster.RolePlayer)
		require.NoError(t, err)
	}
	_, err = svc.Join(room, "eleventh", roster.RolePlayer)
	assert.ErrorIs(t, err, apperr.ErrRoomFull)

	view, err := svc.Snapshot(room, "")
	require.NoError(t, err)
	assert.Len(t, view.Participants, roster.DefaultCapacity+1)
}

func TestDisconnectedPlayerKeepsSeatInFullRoom(t *testing.T) {
	svc := newService(t)
	room, _, err := svc.CreateRoom("full house", "Aldric")
	require.NoError(t, err)

	first, err := svc.Join(room, "player 0", roster.RolePlayer)
	require.NoError(t, err)
	for i := 1; i < roster.DefaultCapacity; i++ {
		_, err := svc.Join(room, fmt.Sprintf("player %d", i), roster.RolePlayer)
		require.NoError(t, err)
	}
	require.NoError(t, svc.SetPresence(room, first, false))

	_, err = svc.Join(room, "eleventh", roster.RolePlayer)
	assert.ErrorIs(t, err, apperr.ErrRoomFull)

	back, err := svc.Join(room, "player 0", roster.RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, first, back)
}

func TestAllTurnsCompleteBeforeAdvance(t *testing.T) {
	s := newSession(t)
	out, err := s.svc.Subscribe(s.room, s.aldric, "c1")
	require.NoError(t, err)

	require.NoError(t, s.svc.StartCombat(s.room, s.aldric))
	for _, p := range []string{s.kira, s.vesper} {
		require.NoError(t, s.svc.AssignTurn(s.room, s.aldric, p, false))
		require.NoError(t, s.svc.EndTurn(s.room, p))
	}
	require.NoError(t, s.svc.AdvanceRound(s.room, s.aldric))

	var seen []lobby.NotificationType
	timeout := time.After(time.Second)
	for len(seen) < 7 {
		select {
		case n := <-out:
			seen = append(seen, n.Type)
		case <-timeout:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.Equal(t, []lobby.NotificationType{
		lobby.NoteRoomUpdated,
		lobby.NoteTurnAssigned, lobby.NoteTurnEnded,
		lobby.NoteTurnAssigned, lobby.NoteTurnEnded,
		lobby.NoteAllTurnsComplete,
		lobby.NoteRoundAdvanced,
	}, seen)
}

func TestKickAndRejoin(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.svc.Kick(s.room, s.aldric, s.kira))

	again, err := s.svc.Join(s.room, "Kira", roster.RolePlayer)
	require.NoError(t, err)
	assert.NotEqual(t, s.kira, again, "a kicked record is gone for good")
}

func TestLeaveAndRevive(t *testing.T) {
	s := newSession(t)
	_, err := s.svc.UpdateStatus(s.room, s.kira, "", map[string]float64{"tension": 12})
	require.NoError(t, err)
	require.NoError(t, s.svc.Leave(s.room, s.kira))

	again, err := s.svc.Join(s.room, "kira", roster.RolePlayer)
	require.NoError(t, err)
	assert.Equal(t, s.kira, again)

	view, err := s.svc.Snapshot(s.room, again)
	require.NoError(t, err)
	for _, p := range view.Participants {
		if p.ID == again {
			assert.Equal(t, 12.0, p.Status["tension"], "stats survive a rejoin")
		}
	}
}

func TestCloseRoom(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.svc.CloseRoom(s.room, s.kira), apperr.ErrNotLeader)
	require.NoError(t, s.svc.CloseRoom(s.room, s.aldric))

	require.Eventually(t, func() bool {
		_, err := s.svc.Room(s.room)
		return err != nil
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.svc.StartCombat(s.room, s.aldric), apperr.ErrRoomNotFound)
}
