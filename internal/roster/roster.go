// Package roster tracks who belongs to a room, in which role, and whether
// they are currently connected. A Roster is not safe for concurrent use; the
// owning room serializes access.
package roster

import (
	"maps"
	"slices"
	"strings"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/ids"
)

type Role string

const (
	RoleLeader Role = "leader"
	RolePlayer Role = "player"
)

const DefaultCapacity = 10

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleLeader:
		return RoleLeader, nil
	case RolePlayer, "":
		return RolePlayer, nil
	default:
		return "", apperr.ErrInvalidRole
	}
}

type Participant struct {
	ID          string
	DisplayName string
	Role        Role
	Present     bool
	Status      map[string]float64
}

func (p Participant) clone() Participant {
	p.Status = maps.Clone(p.Status)
	return p
}

type Roster struct {
	capacity int
	alerts   Alerts
	order    []string
	members  map[string]*Participant
	newID    func() string
}

type Option func(*Roster)

// WithCapacity caps the number of present non-leader participants.
func WithCapacity(n int) Option {
	return func(r *Roster) {
		if n > 0 {
			r.capacity = n
		}
	}
}

func WithAlerts(a Alerts) Option {
	return func(r *Roster) { r.alerts = a }
}

// WithIDs replaces the participant id generator.
func WithIDs(fn func() string) Option {
	return func(r *Roster) { r.newID = fn }
}

// New creates a roster whose creator is the present leader.
func New(leaderName string, opts ...Option) (*Roster, Participant, error) {
	r := &Roster{
		capacity: DefaultCapacity,
		alerts:   DefaultAlerts(),
		members:  map[string]*Participant{},
		newID:    ids.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	leader, _, err := r.Join(leaderName, RoleLeader)
	if err != nil {
		return nil, Participant{}, err
	}
	return r, leader, nil
}

// Join adds a participant, or revives a departed record with the same display
// name so identity and stats survive a reconnect. A revived record keeps its
// original role.
func (r *Roster) Join(displayName string, role Role) (p Participant, revived bool, err error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return Participant{}, false, apperr.ErrEmptyName
	}
	if role != RoleLeader && role != RolePlayer {
		return Participant{}, false, apperr.ErrInvalidRole
	}

	if existing := r.byName(name); existing != nil {
		if existing.Present {
			return Participant{}, false, apperr.ErrNameTaken
		}
		// A departed record still holds its seat.
		existing.Present = true
		return existing.clone(), true, nil
	}

	if role == RoleLeader {
		if _, ok := r.Leader(); ok {
			return Participant{}, false, apperr.ErrLeaderExists
		}
	} else if r.players() >= r.capacity {
		return Participant{}, false, apperr.ErrRoomFull
	}

	created := &Participant{
		ID:          r.newID(),
		DisplayName: name,
		Role:        role,
		Present:     true,
		Status:      map[string]float64{},
	}
	r.members[created.ID] = created
	r.order = append(r.order, created.ID)
	return created.clone(), false, nil
}

// SetPresence flips the connection flag. It reports whether anything changed.
func (r *Roster) SetPresence(id string, present bool) (bool, error) {
	p, ok := r.members[id]
	if !ok {
		return false, apperr.ErrUnknownParticipant
	}
	if p.Present == present {
		return false, nil
	}
	p.Present = present
	return true, nil
}

// Leave marks the participant absent but keeps the record for rejoining.
func (r *Roster) Leave(id string) (bool, error) {
	return r.SetPresence(id, false)
}

// Kick permanently removes a player record.
func (r *Roster) Kick(id string) (Participant, error) {
	p, ok := r.members[id]
	if !ok {
		return Participant{}, apperr.ErrUnknownParticipant
	}
	if p.Role == RoleLeader {
		return Participant{}, apperr.ErrCannotKickLeader
	}
	delete(r.members, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return p.clone(), nil
}

// UpdateStatus merges attrs into the participant's status and returns the
// alerts raised by values crossing upward into a higher level.
func (r *Roster) UpdateStatus(id string, attrs map[string]float64) (Participant, []Alert, error) {
	p, ok := r.members[id]
	if !ok {
		return Participant{}, nil, apperr.ErrUnknownParticipant
	}
	var raised []Alert
	for _, key := range slices.Sorted(maps.Keys(attrs)) {
		prev, had := p.Status[key]
		next := attrs[key]
		if alert, ok := r.alerts.crossed(key, prev, had, next); ok {
			alert.ParticipantID = id
			raised = append(raised, alert)
		}
		p.Status[key] = next
	}
	return p.clone(), raised, nil
}

func (r *Roster) Get(id string) (Participant, bool) {
	p, ok := r.members[id]
	if !ok {
		return Participant{}, false
	}
	return p.clone(), true
}

// List returns every record in join order.
func (r *Roster) List() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id].clone())
	}
	return out
}

func (r *Roster) Leader() (Participant, bool) {
	for _, id := range r.order {
		if p := r.members[id]; p.Role == RoleLeader {
			return p.clone(), true
		}
	}
	return Participant{}, false
}

func (r *Roster) IsLeader(id string) bool {
	p, ok := r.members[id]
	return ok && p.Role == RoleLeader
}

func (r *Roster) IsPresent(id string) bool {
	p, ok := r.members[id]
	return ok && p.Present
}

// PresentIDs returns the ids of connected participants in join order.
func (r *Roster) PresentIDs() []string {
	var out []string
	for _, id := range r.order {
		if r.members[id].Present {
			out = append(out, id)
		}
	}
	return out
}

func (r *Roster) AnyPresent() bool {
	for _, p := range r.members {
		if p.Present {
			return true
		}
	}
	return false
}

func (r *Roster) Capacity() int { return r.capacity }

func (r *Roster) byName(name string) *Participant {
	for _, id := range r.order {
		if p := r.members[id]; strings.EqualFold(p.DisplayName, name) {
			return p
		}
	}
	return nil
}

// players counts Player records, present or not. Only Kick frees a seat.
func (r *Roster) players() int {
	n := 0
	for _, p := range r.members {
		if p.Role == RolePlayer {
			n++
		}
	}
	return n
}
