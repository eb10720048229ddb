package lobby

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/channel"
	"github.com/DoyleJ11/warroom-backend/internal/engine"
	"github.com/DoyleJ11/warroom-backend/internal/logging"
	"github.com/DoyleJ11/warroom-backend/internal/metrics"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd   Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

// Subscribe registers an outbox for one connection of a participant. The
// lobby closes the outbox when it drops the subscriber or shuts down. With
// MarkPresent set the participant is marked present in the same step.
type Subscribe struct {
	ParticipantID string
	ConnID        string
	Outbox        chan Notification
	MarkPresent   bool
	Reply         chan error
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ConnID string }

func (Unsubscribe) isLobbyMsg() {}

// Detach removes ConnID (if any) and marks ParticipantID absent once none of
// its connections remain.
type Detach struct {
	ParticipantID string
	ConnID        string
}

func (Detach) isLobbyMsg() {}

// Shutdown stops the room. A non-empty Reason is announced to everyone
// present before their outboxes are closed.
type Shutdown struct{ Reason string }

func (Shutdown) isLobbyMsg() {}

// GetState reflects the room as seen by Viewer without racing the loop.
type GetState struct {
	Viewer string
	Reply  chan View
}

func (GetState) isLobbyMsg() {}

type timerFired struct {
	Gen    int
	Holder string
}

func (timerFired) isLobbyMsg() {}

type Config struct {
	ID          string
	Name        string
	LeaderName  string
	Capacity    int
	Alerts      roster.Alerts
	AutoRelease time.Duration
	OutboxSize  int
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Clock       func() time.Time
}

type subscriber struct {
	participantID string
	outbox        chan Notification
}

type Lobby struct {
	id      string
	name    string
	inbox   chan Msg
	state   engine.State
	roster  *roster.Roster
	chans   *channel.Registry
	version int64
	clients map[string]subscriber

	autoRelease time.Duration
	timer       *time.Timer
	timerGen    int
	armedFor    string
	outboxSize  int

	now        func() time.Time
	emptySince atomic.Int64
	claimed    bool
	log        *zap.Logger
	metrics    *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLobby creates the room, registers the creator as its leader and starts
// the loop that serializes every mutation of the room.
func NewLobby(parent context.Context, cfg Config) (*Lobby, roster.Participant, error) {
	opts := []roster.Option{roster.WithCapacity(cfg.Capacity)}
	if cfg.Alerts != nil {
		opts = append(opts, roster.WithAlerts(cfg.Alerts))
	}
	r, leader, err := roster.New(cfg.LeaderName, opts...)
	if err != nil {
		return nil, roster.Participant{}, err
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = cfg.ID
	}

	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		id:          cfg.ID,
		name:        name,
		inbox:       make(chan Msg, 64), // Small buffer
		state:       engine.NewState(),
		roster:      r,
		chans:       channel.NewRegistry(channel.WithClock(now)),
		clients:     make(map[string]subscriber),
		autoRelease: cfg.AutoRelease,
		outboxSize:  max(cfg.OutboxSize, 1),
		now:         now,
		log:         logging.Room(logger, cfg.ID),
		metrics:     cfg.Metrics,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	// Idle from creation until the first connection claims the room.
	l.emptySince.Store(now().UnixNano())
	l.metrics.RoomOpened()
	go l.loop()
	return l, leader, nil
}

func (l *Lobby) loop() {
	defer close(l.done)
	defer l.metrics.RoomClosed()

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			if stop := l.handle(m); stop {
				l.shutdown()
				return
			}
		}
	}
}

// handle processes one message. A panic faults this room only.
func (l *Lobby) handle(m Msg) (stop bool) {
	defer func() {
		if rec := recover(); rec != nil {
			l.log.Error("room faulted", zap.Any("panic", rec))
			stop = true
		}
	}()

	switch msg := m.(type) {
	case Subscribe:
		if _, ok := l.roster.Get(msg.ParticipantID); !ok {
			msg.Reply <- apperr.ErrUnknownParticipant
			break
		}
		l.clients[msg.ConnID] = subscriber{participantID: msg.ParticipantID, outbox: msg.Outbox}
		l.claimed = true
		if msg.MarkPresent {
			l.commit(Command{Type: CmdSetPresence, By: msg.ParticipantID, Present: true})
		}
		l.trackPresence()
		msg.Reply <- nil

	case Unsubscribe:
		// The subscriber may already have been dropped.
		delete(l.clients, msg.ConnID)

	case Detach:
		delete(l.clients, msg.ConnID)
		if _, ok := l.roster.Get(msg.ParticipantID); !ok || l.connected(msg.ParticipantID) {
			break
		}
		l.commit(Command{Type: CmdSetPresence, By: msg.ParticipantID, Present: false})

	case FromClient:
		res := l.commit(msg.Cmd)
		msg.Reply <- res
		if msg.Cmd.Type == CmdCloseRoom && res.Err == nil {
			return true
		}

	case timerFired:
		l.autoReleaseFired(msg)

	case GetState:
		msg.Reply <- l.view(msg.Viewer)

	case Shutdown:
		if msg.Reason != "" {
			l.broadcast(Notification{Type: NoteRoomClosed, Payload: Closed{Reason: msg.Reason}, Audience: everyone})
		}
		return true
	}
	return false
}

// commit applies cmd and delivers its notifications.
func (l *Lobby) commit(cmd Command) Result {
	res, notes := l.apply(cmd)
	if res.Err != nil {
		l.metrics.Rejected(apperr.Code(res.Err))
		l.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("participant", cmd.By),
			zap.Error(res.Err))
	}
	for _, n := range notes {
		l.broadcast(n)
	}
	l.syncAutoRelease()
	l.trackPresence()
	return res
}

// connected reports whether participantID still holds a subscription.
func (l *Lobby) connected(participantID string) bool {
	for _, sub := range l.clients {
		if sub.participantID == participantID {
			return true
		}
	}
	return false
}

func (l *Lobby) shutdown() {
	if l.timer != nil {
		l.timer.Stop()
	}
	for id, sub := range l.clients {
		closeOutbox(sub.outbox) // Tell client no more notifications
		delete(l.clients, id)
	}
	l.cancel()
}

// broadcast stamps n with the next version and hands it to every subscriber in
// its audience. Sends never block: a full outbox drops that subscriber.
func (l *Lobby) broadcast(n Notification) {
	l.version++
	n.Version = l.version
	n.RoomID = l.id
	l.metrics.Notified(string(n.Type))

	for id, sub := range l.clients {
		if !l.reaches(n.Audience, sub.participantID) {
			continue
		}
		select {
		case sub.outbox <- n:
			// ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow subscriber",
				zap.String("participant", sub.participantID),
				zap.String("conn", id))
			l.metrics.SubscriberDropped()
			closeOutbox(sub.outbox)
			delete(l.clients, id)
		}
	}
}

func (l *Lobby) reaches(a Audience, participantID string) bool {
	if !l.roster.IsPresent(participantID) {
		return false
	}
	if a.All {
		return true
	}
	for _, id := range a.Members {
		if id == participantID {
			return true
		}
	}
	return false
}

// dropParticipant closes every subscription held by participantID.
func (l *Lobby) dropParticipant(participantID string) {
	for id, sub := range l.clients {
		if sub.participantID == participantID {
			closeOutbox(sub.outbox)
			delete(l.clients, id)
		}
	}
}

// closeOutbox tolerates outboxes already closed by a misbehaving owner.
func closeOutbox(ch chan Notification) {
	defer func() { _ = recover() }()
	close(ch)
}

func (l *Lobby) trackPresence() {
	if !l.claimed {
		return
	}
	if l.roster.AnyPresent() {
		l.emptySince.Store(0)
		return
	}
	if l.emptySince.Load() == 0 {
		l.emptySince.Store(l.now().UnixNano())
	}
}

// syncAutoRelease arms the release timer while the turn holder is offline and
// disarms it otherwise. A holder who comes back before it fires keeps the turn.
func (l *Lobby) syncAutoRelease() {
	holder := l.state.Active
	stuck := holder != "" && !l.roster.IsPresent(holder)
	switch {
	case stuck && l.armedFor != holder:
		l.armAutoRelease(holder)
	case !stuck && l.armedFor != "":
		l.disarmAutoRelease()
	}
}

// Any later arm or disarm invalidates earlier timers through the generation.
func (l *Lobby) armAutoRelease(holder string) {
	l.timerGen++
	l.armedFor = holder
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.autoRelease <= 0 {
		return
	}
	gen := l.timerGen
	l.timer = time.AfterFunc(l.autoRelease, func() {
		select {
		case l.inbox <- timerFired{Gen: gen, Holder: holder}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) disarmAutoRelease() {
	l.timerGen++
	l.armedFor = ""
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Lobby) autoReleaseFired(msg timerFired) {
	if msg.Gen != l.timerGen {
		return // stale
	}
	if l.state.Active != msg.Holder || l.roster.IsPresent(msg.Holder) {
		return
	}
	events, next, err := engine.Release(l.state)
	if err != nil {
		return
	}
	l.state = next
	l.disarmAutoRelease()
	l.log.Info("turn auto-released", zap.String("participant", msg.Holder))
	for _, n := range l.turnNotes(events) {
		l.broadcast(n)
	}
}

// Expose the inbox so tests or the transport can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) ID() string { return l.id }

func (l *Lobby) Name() string { return l.name }

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// EmptySince reports when the room became idle: the last participant went
// absent, or the room was created and nobody has connected yet. It is zero
// while anyone is present on a claimed room.
func (l *Lobby) EmptySince() time.Time {
	n := l.emptySince.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (l *Lobby) String() string { return fmt.Sprintf("lobby(%s)", l.id) }
