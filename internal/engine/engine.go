package engine

import (
	"github.com/DoyleJ11/warroom-backend/internal/apperr"
)

// Phase is narrative (free play) or combat (turn-based).
type Phase string

const (
	PhaseNarrative Phase = "narrative"
	PhaseCombat    Phase = "combat"
)

// State is the turn state of one session. Completed holds turnCompleted per
// participant id; a missing key means false.
type State struct {
	Phase       Phase
	Round       int
	Active      string
	CombatEnded bool
	Completed   map[string]bool
	// AllDone records that AllTurnsComplete already fired this round.
	AllDone bool
}

// Seat is the engine's read-only view of a roster member.
type Seat struct {
	ID      string
	Leader  bool
	Present bool
}

type Seats interface {
	Seat(id string) (Seat, bool)
	Seats() []Seat
}

type CommandType string

const (
	CmdStartCombat  CommandType = "StartCombat"
	CmdAssignTurn   CommandType = "AssignTurn"
	CmdEndTurn      CommandType = "EndTurn"
	CmdReleaseTurn  CommandType = "ReleaseTurn"
	CmdAdvanceRound CommandType = "AdvanceRound"
	CmdEndCombat    CommandType = "EndCombat"
)

/*
	CmdStartCombat  -> EvtCombatStarted
	CmdAssignTurn   -> EvtTurnAssigned (forced: EvtTurnEnded{Released} first)
	CmdEndTurn      -> EvtTurnEnded -> EvtAllTurnsComplete (once per round)
	CmdReleaseTurn  -> EvtTurnEnded{Released}
	CmdAdvanceRound -> EvtRoundAdvanced
	CmdEndCombat    -> EvtCombatEnded
*/

// Command is one turn request. By is the caller; Target is read by
// AssignTurn, Force by AssignTurn, Reason by EndCombat.
type Command struct {
	Type   CommandType
	By     string
	Target string
	Force  bool
	Reason string
}

type EventType string

const (
	EvtCombatStarted    EventType = "CombatStarted"
	EvtTurnAssigned     EventType = "TurnAssigned"
	EvtTurnEnded        EventType = "TurnEnded"
	EvtAllTurnsComplete EventType = "AllTurnsComplete"
	EvtRoundAdvanced    EventType = "RoundAdvanced"
	EvtCombatEnded      EventType = "CombatEnded"
)

// Event records one accepted transition in Round. ParticipantID is set for
// turn events, Reason for CombatEnded, and Released when a turn was taken back
// rather than ended by its holder.
type Event struct {
	Type          EventType
	ParticipantID string
	Round         int
	Released      bool
	Reason        string
}

// DefaultEndReason is used when EndCombat gives no reason.
const DefaultEndReason = "victory"

// Apply validates cmd against s and returns the resulting events and state.
// On error the returned state is s, untouched.
func Apply(s State, seats Seats, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdEndTurn:
		// The only command a player may issue.
		if s.Active == "" || cmd.By != s.Active {
			return nil, s, apperr.ErrNotYourTurn
		}
		newState := s.Clone()
		newState.Completed[cmd.By] = true
		newState.Active = ""
		events := []Event{{Type: EvtTurnEnded, ParticipantID: cmd.By, Round: s.Round}}
		if !newState.AllDone && allPresentDone(newState, seats) {
			newState.AllDone = true
			events = append(events, Event{Type: EvtAllTurnsComplete, Round: s.Round})
		}
		return events, newState, nil

	case CmdStartCombat, CmdAssignTurn, CmdReleaseTurn, CmdAdvanceRound, CmdEndCombat:
		if !isLeader(seats, cmd.By) {
			return nil, s, apperr.ErrNotLeader
		}

	default:
		return nil, s, apperr.ErrUnsupportedCmd
	}

	switch cmd.Type {
	case CmdStartCombat:
		if s.Phase == PhaseCombat {
			return nil, s, apperr.ErrCombatActive
		}
		newState := State{
			Phase:     PhaseCombat,
			Round:     1,
			Completed: map[string]bool{},
		}
		return []Event{{Type: EvtCombatStarted, Round: 1}}, newState, nil

	case CmdAssignTurn:
		if s.Phase != PhaseCombat {
			return nil, s, apperr.ErrNotInCombat
		}
		// Checked before the target so a stuck holder cannot be silently replaced.
		if s.Active != "" && !cmd.Force {
			return nil, s, apperr.ErrTurnAlreadyActive
		}
		if !canReceiveTurn(s, seats, cmd.Target) {
			return nil, s, apperr.ErrInvalidTurnTarget
		}

		newState := s.Clone()
		var events []Event
		if s.Active != "" {
			events = append(events, Event{Type: EvtTurnEnded, ParticipantID: s.Active, Round: s.Round, Released: true})
		}
		newState.Active = cmd.Target
		events = append(events, Event{Type: EvtTurnAssigned, ParticipantID: cmd.Target, Round: s.Round})
		return events, newState, nil

	case CmdReleaseTurn:
		return Release(s)

	case CmdAdvanceRound:
		if s.Phase != PhaseCombat {
			return nil, s, apperr.ErrNotInCombat
		}
		newState := s.Clone()
		newState.Round++
		newState.Active = ""
		newState.AllDone = false
		clear(newState.Completed)
		return []Event{{Type: EvtRoundAdvanced, Round: newState.Round}}, newState, nil

	default: // CmdEndCombat
		if s.Phase != PhaseCombat {
			return nil, s, apperr.ErrNotInCombat
		}
		reason := cmd.Reason
		if reason == "" {
			reason = DefaultEndReason
		}
		newState := State{
			Phase:       PhaseNarrative,
			Round:       s.Round,
			CombatEnded: true,
			Completed:   map[string]bool{},
		}
		return []Event{{Type: EvtCombatEnded, Round: s.Round, Reason: reason}}, newState, nil
	}
}

// Release clears the active turn without completing it.
func Release(s State) ([]Event, State, error) {
	if s.Active == "" {
		return nil, s, apperr.ErrNoActiveTurn
	}
	newState := s.Clone()
	newState.Active = ""
	return []Event{{Type: EvtTurnEnded, ParticipantID: s.Active, Round: s.Round, Released: true}}, newState, nil
}

// Forget drops every trace of a participant removed from the roster. If they
// held the active turn it is released.
func Forget(s State, id string) ([]Event, State) {
	newState := s.Clone()
	delete(newState.Completed, id)
	if id == "" || s.Active != id {
		return nil, newState
	}
	newState.Active = ""
	return []Event{{Type: EvtTurnEnded, ParticipantID: id, Round: s.Round, Released: true}}, newState
}
