package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/ids"
	"github.com/DoyleJ11/warroom-backend/internal/lobby"
	"github.com/DoyleJ11/warroom-backend/internal/metrics"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
)

const maxCodeAttempts = 16

var errNoFreeCode = errors.New("hub: could not allocate a free room code")

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Name       string
	LeaderName string
	Reply      chan Created
}

type Created struct {
	Lobby  *lobby.Lobby
	Leader roster.Participant
	Err    error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby forgets Code only while it still maps to Lobby.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

// Sweep stops rooms that have been empty for at least the idle timeout.
type Sweep struct {
	Now   time.Time
	Reply chan []string
}

type ShutdownHub struct {
	Reply chan []*lobby.Lobby
}

func (CreateRoom) isHubMsg()  {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (Sweep) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Capacity    int
	Alerts      roster.Alerts
	AutoRelease time.Duration
	OutboxSize  int
	// IdleTimeout of zero keeps empty rooms forever.
	IdleTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	NewCode     func() (string, error)
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewCode == nil {
		opts.NewCode = ids.RoomCode
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create(msg)

			case GetLobby:
				msg.Reply <- h.lobbies[normalize(msg.Code)] // May be nil

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case Sweep:
				msg.Reply <- h.sweep(msg.Now)

			case ShutdownHub:
				h.closed = true
				out := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					out = append(out, lb)
				}
				clear(h.lobbies)
				msg.Reply <- out
			}
		}
	}
}

func (h *Hub) create(msg CreateRoom) Created {
	if h.closed {
		return Created{Err: apperr.ErrRoomClosed}
	}
	code, err := h.freeCode()
	if err != nil {
		return Created{Err: err}
	}
	lb, leader, err := lobby.NewLobby(h.ctx, lobby.Config{
		ID:          code,
		Name:        msg.Name,
		LeaderName:  msg.LeaderName,
		Capacity:    h.opts.Capacity,
		Alerts:      h.opts.Alerts,
		AutoRelease: h.opts.AutoRelease,
		OutboxSize:  h.opts.OutboxSize,
		Logger:      h.log,
		Metrics:     h.opts.Metrics,
	})
	if err != nil {
		return Created{Err: err}
	}
	h.lobbies[code] = lb
	go h.watch(code, lb)
	h.log.Info("room created", zap.String("room", code), zap.String("leader", leader.ID))
	return Created{Lobby: lb, Leader: leader}
}

// freeCode draws codes until one is not in use.
func (h *Hub) freeCode() (string, error) {
	for range maxCodeAttempts {
		code, err := h.opts.NewCode()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := h.lobbies[code]; !taken {
			return code, nil
		}
	}
	return "", errNoFreeCode
}

// watch drops the room from the registry once its loop exits, whatever the
// cause: explicit close, idle sweep or a fault.
func (h *Hub) watch(code string, lb *lobby.Lobby) {
	select {
	case <-lb.Done():
	case <-h.ctx.Done():
		return
	}
	select {
	case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) sweep(now time.Time) []string {
	if h.opts.IdleTimeout <= 0 {
		return nil
	}
	var stopped []string
	for code, lb := range h.lobbies {
		since := lb.EmptySince()
		if since.IsZero() || now.Sub(since) < h.opts.IdleTimeout {
			continue
		}
		delete(h.lobbies, code)
		stopped = append(stopped, code)
		h.log.Info("closing idle room", zap.String("room", code), zap.Time("empty_since", since))
		go lb.Stop("idle")
	}
	return stopped
}

// CreateRoom opens a new room led by leaderName.
func (h *Hub) CreateRoom(name, leaderName string) (*lobby.Lobby, roster.Participant, error) {
	reply := make(chan Created, 1)
	select {
	case h.inbox <- CreateRoom{Name: name, LeaderName: leaderName, Reply: reply}:
	case <-h.ctx.Done():
		return nil, roster.Participant{}, apperr.ErrRoomClosed
	}
	select {
	case res := <-reply:
		return res.Lobby, res.Leader, res.Err
	case <-h.ctx.Done():
		return nil, roster.Participant{}, apperr.ErrRoomClosed
	}
}

// Get returns the room with the given code, or apperr.ErrRoomNotFound.
func (h *Hub) Get(code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- GetLobby{Code: code, Reply: reply}:
	case <-h.ctx.Done():
		return nil, apperr.ErrRoomNotFound
	}
	select {
	case lb := <-reply:
		if lb != nil {
			return lb, nil
		}
	case <-h.ctx.Done():
	}
	return nil, apperr.ErrRoomNotFound
}

// Sweep runs one idle check and returns the codes of the rooms it stopped.
func (h *Hub) Sweep(now time.Time) []string {
	reply := make(chan []string, 1)
	select {
	case h.inbox <- Sweep{Now: now, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case stopped := <-reply:
		return stopped
	case <-h.ctx.Done():
		return nil
	}
}

// RunJanitor sweeps every interval until ctx is done.
func (h *Hub) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || h.opts.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if stopped := h.Sweep(now); len(stopped) > 0 {
				h.log.Debug("janitor sweep", zap.Strings("rooms", stopped))
			}
		}
	}
}

// Shutdown stops every room, announcing the shutdown to connected clients,
// and waits for their loops to exit until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	reply := make(chan []*lobby.Lobby, 1)
	select {
	case h.inbox <- ShutdownHub{Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	var rooms []*lobby.Lobby
	select {
	case rooms = <-reply:
	case <-h.ctx.Done():
		return nil
	}

	for _, lb := range rooms {
		select {
		case lb.Inbox() <- lobby.Shutdown{Reason: "server_shutdown"}:
		case <-lb.Done():
		case <-ctx.Done():
		}
	}
	var err error
	for _, lb := range rooms {
		select {
		case <-lb.Done():
		case <-ctx.Done():
			err = multierr.Append(err, fmt.Errorf("room %s: %w", lb.ID(), ctx.Err()))
		}
	}
	h.cancel()
	return err
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
