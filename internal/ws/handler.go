package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/warroom-backend/internal/apperr"
	"github.com/DoyleJ11/warroom-backend/internal/config"
	"github.com/DoyleJ11/warroom-backend/internal/coordinator"
	"github.com/DoyleJ11/warroom-backend/internal/lobby"
	"github.com/DoyleJ11/warroom-backend/internal/logging"
	"github.com/DoyleJ11/warroom-backend/internal/metrics"
	"github.com/DoyleJ11/warroom-backend/internal/roster"
	"github.com/DoyleJ11/warroom-backend/internal/types"
	ptypes "github.com/DoyleJ11/warroom-backend/pkg/types"
)

var errSessionEnded = errors.New("session ended")

// Handler upgrades GET /ws?room=CODE&name=NAME&role=ROLE. Passing
// participant_id instead of a name resumes an existing record.
func Handler(svc *coordinator.Service, cfg config.WSConfig, logger *zap.Logger, m *metrics.Metrics) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("room")
		if code == "" {
			writeError(w, apperr.ErrBadRequest, "missing room")
			return
		}
		lb, err := svc.Room(code)
		if err != nil {
			writeError(w, err, "")
			return
		}

		pid, err := attach(lb, q.Get("participant_id"), q.Get("name"), q.Get("role"))
		if err != nil {
			writeError(w, err, "")
			return
		}
		log := logging.Room(logger, lb.ID()).With(zap.String("participant", pid))

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			lb.Detach(pid, "")
			return
		}
		defer conn.CloseNow()
		if cfg.MaxFrameBytes > 0 {
			conn.SetReadLimit(cfg.MaxFrameBytes)
		}

		m.ConnOpened()
		defer m.ConnClosed()

		c := &client{
			conn:    conn,
			lb:      lb,
			pid:     pid,
			connID:  uuid.NewString(),
			cfg:     cfg,
			log:     log,
			limiter: newLimiter(cfg),
			replies: make(chan types.ServerMessage, 16),
		}
		c.serve(r.Context())
	}
}

// attach joins by name or, when participantID is set, marks that record
// present again.
func attach(lb *lobby.Lobby, participantID, name, role string) (string, error) {
	if participantID != "" {
		if err := lb.SetPresence(participantID, true); err != nil {
			return "", err
		}
		return participantID, nil
	}
	if name == "" {
		return "", apperr.ErrEmptyName
	}
	r, err := roster.ParseRole(role)
	if err != nil {
		return "", err
	}
	p, err := lb.Join(name, r)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func newLimiter(cfg config.WSConfig) *rate.Limiter {
	if cfg.FramesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.FramesPerSecond), max(cfg.FrameBurst, 1))
}

type client struct {
	conn    *websocket.Conn
	lb      *lobby.Lobby
	pid     string
	connID  string
	cfg     config.WSConfig
	log     *zap.Logger
	limiter *rate.Limiter
	replies chan types.ServerMessage
}

func (c *client) serve(ctx context.Context) {
	outbox, err := c.lb.Attach(c.pid, c.connID)
	if err != nil {
		c.log.Warn("attach failed", zap.Error(err))
		_ = c.conn.Close(websocket.StatusTryAgainLater, apperr.Code(err))
		return
	}
	// The participant stays present while any other connection remains.
	defer c.lb.Detach(c.pid, c.connID)

	view, err := c.lb.State(c.pid)
	if err != nil {
		_ = c.conn.Close(websocket.StatusGoingAway, apperr.Code(err))
		return
	}
	c.replies <- types.ServerMessage{
		Type:    ptypes.ServerWelcome,
		Payload: ptypes.Welcome{ParticipantID: c.pid, Snapshot: ToSnapshot(view)},
	}
	c.log.Info("client connected", zap.String("conn", c.connID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.writeLoop(gctx, outbox) })
	g.Go(func() error { return c.readLoop(gctx) })
	err = g.Wait()

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		c.log.Info("client disconnected", zap.String("conn", c.connID))
	default:
		if !errors.Is(err, errSessionEnded) {
			c.log.Debug("client connection ended", zap.String("conn", c.connID), zap.Error(err))
		}
	}
}

// writeLoop is the only writer on the connection.
func (c *client) writeLoop(ctx context.Context, outbox <-chan lobby.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-c.replies:
			if err := c.write(ctx, msg); err != nil {
				return err
			}

		case n, ok := <-outbox:
			if !ok {
				// Kicked, left, dropped as slow, or the room is gone.
				_ = c.conn.Close(websocket.StatusNormalClosure, "session ended")
				return errSessionEnded
			}
			msg := types.ServerMessage{Type: ptypes.ServerNotification, Payload: toNotification(n)}
			if err := c.write(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.conn, msg)
}

func (c *client) readLoop(ctx context.Context) error {
	for {
		rctx, cancel := ctx, context.CancelFunc(func() {})
		if c.cfg.ReadTimeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		}
		_, data, err := c.conn.Read(rctx)
		cancel()
		if err != nil {
			return err
		}

		var cm types.ClientMessage
		var resp types.ServerMessage
		switch {
		case !c.limiter.Allow():
			resp = errorFrame(apperr.ErrRateLimited)
		case json.Unmarshal(data, &cm) != nil:
			resp = errorFrame(apperr.ErrBadRequest)
		default:
			resp = c.dispatch(cm)
		}
		resp.RequestID = cm.RequestID

		select {
		case c.replies <- resp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func errorFrame(err error) types.ServerMessage {
	e, ok := apperr.As(err)
	if !ok {
		return types.ServerMessage{
			Type:    ptypes.ServerError,
			Payload: ptypes.Error{Code: apperr.Code(err), Message: "internal error"},
		}
	}
	return types.ServerMessage{
		Type:    ptypes.ServerError,
		Payload: ptypes.Error{Code: e.Code, Message: e.Message},
	}
}

func writeError(w http.ResponseWriter, err error, message string) {
	e := ptypes.Error{Code: apperr.Code(err), Message: message}
	if ae, ok := apperr.As(err); ok && message == "" {
		e.Message = ae.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(e)
}
