// Package channel holds the chat channels of one room: the implicit group
// channel every participant sees, and restricted channels whose scope is fixed
// when they are created. A Registry is not safe for concurrent use.
package channel

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/ids"
)

const (
	DefaultID   = "group"
	DefaultName = "Group"

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type Kind string

const (
	KindSystem      Kind = "system"
	KindParticipant Kind = "participant"
	KindLeader      Kind = "leader"
)

// Message is immutable once appended.
type Message struct {
	ID        string
	ChannelID string
	SenderID  string
	Kind      Kind
	Text      string
	Timestamp time.Time
	Seq       int64
}

type channel struct {
	id       string
	name     string
	members  []string // nil for the group channel
	messages []Message
}

func (c *channel) restricted() bool { return c.members != nil }

func (c *channel) includes(id string) bool {
	return !c.restricted() || slices.Contains(c.members, id)
}

// Info is a participant-specific view of a channel.
type Info struct {
	ID         string
	Name       string
	Restricted bool
	Members    []string
	Unread     int
	LastSeq    int64
}

type Registry struct {
	channels   map[string]*channel
	order      []string
	lastRead   map[string]map[string]int64 // participant -> channel -> seq
	nextSecret int
	now        func() time.Time
	newID      func() string
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithIDs(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		channels: map[string]*channel{},
		lastRead: map[string]map[string]int64{},
		now:      time.Now,
		newID:    ids.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.add(&channel{id: DefaultID, name: DefaultName})
	return r
}

func (r *Registry) add(c *channel) {
	r.channels[c.id] = c
	r.order = append(r.order, c.id)
}

// Post appends a participant message. senderPresent decides scope for the
// group channel, where every present participant may speak.
func (r *Registry) Post(channelID, senderID string, senderPresent bool, text string, kind Kind) (Message, error) {
	c, ok := r.channels[channelID]
	if !ok {
		return Message{}, apperr.ErrUnknownChannel
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, apperr.ErrEmptyMessage
	}
	if senderID == "" || !c.includes(senderID) || (!c.restricted() && !senderPresent) {
		return Message{}, apperr.ErrSenderNotInScope
	}
	msg := r.appendTo(c, senderID, kind, text)
	r.markRead(senderID, c)
	return msg, nil
}

// PostSystem appends a system-authored message.
func (r *Registry) PostSystem(channelID, text string) (Message, error) {
	c, ok := r.channels[channelID]
	if !ok {
		return Message{}, apperr.ErrUnknownChannel
	}
	return r.appendTo(c, "", KindSystem, text), nil
}

func (r *Registry) appendTo(c *channel, senderID string, kind Kind, text string) Message {
	msg := Message{
		ID:        r.newID(),
		ChannelID: c.id,
		SenderID:  senderID,
		Kind:      kind,
		Text:      text,
		Timestamp: r.now().UTC(),
		Seq:       int64(len(c.messages) + 1),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// CreateRestricted opens a channel visible only to memberIDs. Callers are
// responsible for checking that every id is a live roster member.
func (r *Registry) CreateRestricted(name string, memberIDs []string) (Info, error) {
	members := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	if len(members) < 2 {
		return Info{}, apperr.ErrEmptyScope
	}

	r.nextSecret++
	c := &channel{
		id:      fmt.Sprintf("secret_%d", r.nextSecret),
		name:    strings.TrimSpace(name),
		members: members,
	}
	if c.name == "" {
		c.name = "Secret"
	}
	r.add(c)
	r.appendTo(c, "", KindSystem, fmt.Sprintf("Secret channel %q opened", c.name))
	return r.info(c, ""), nil
}

// ListFor returns the channels participantID can see, in creation order.
func (r *Registry) ListFor(participantID string) []Info {
	var out []Info
	for _, id := range r.order {
		c := r.channels[id]
		if c.includes(participantID) {
			out = append(out, r.info(c, participantID))
		}
	}
	return out
}

// Members returns the fixed scope of a channel; ok is false for unknown
// channels and all is true for the group channel.
func (r *Registry) Members(channelID string) (members []string, all bool, ok bool) {
	c, found := r.channels[channelID]
	if !found {
		return nil, false, false
	}
	if !c.restricted() {
		return nil, true, true
	}
	return slices.Clone(c.members), false, true
}

func (r *Registry) MarkRead(participantID, channelID string) error {
	c, err := r.visible(participantID, channelID)
	if err != nil {
		return err
	}
	r.markRead(participantID, c)
	return nil
}

// History returns up to limit messages older than beforeSeq (all when
// beforeSeq <= 0), oldest first.
func (r *Registry) History(participantID, channelID string, beforeSeq int64, limit int) ([]Message, error) {
	c, err := r.visible(participantID, channelID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	end := len(c.messages)
	if beforeSeq > 0 && beforeSeq <= int64(end) {
		end = int(beforeSeq) - 1
	}
	start := max(0, end-limit)
	return slices.Clone(c.messages[start:end]), nil
}

func (r *Registry) visible(participantID, channelID string) (*channel, error) {
	c, ok := r.channels[channelID]
	if !ok {
		return nil, apperr.ErrUnknownChannel
	}
	if !c.includes(participantID) {
		return nil, apperr.ErrChannelNotVisible
	}
	return c, nil
}

func (r *Registry) markRead(participantID string, c *channel) {
	seen, ok := r.lastRead[participantID]
	if !ok {
		seen = map[string]int64{}
		r.lastRead[participantID] = seen
	}
	seen[c.id] = int64(len(c.messages))
}

func (r *Registry) info(c *channel, participantID string) Info {
	info := Info{
		ID:         c.id,
		Name:       c.name,
		Restricted: c.restricted(),
		Members:    slices.Clone(c.members),
		LastSeq:    int64(len(c.messages)),
	}
	if participantID == "" {
		return info
	}
	read := r.lastRead[participantID][c.id]
	for _, m := range c.messages[read:] {
		if m.SenderID != participantID {
			info.Unread++
		}
	}
	return info
}
