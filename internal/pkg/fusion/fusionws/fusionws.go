// Package fusionws carries the signal table over a websocket to the external
// monitoring system: outbound sig updates as JSON frames, inbound write-back
// frames handed to the owning room's serialised context.
package fusionws

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/config"
	"github.com/avbuild/roomsync/internal/pkg/fusion"
	"github.com/avbuild/roomsync/pkg/sockets"
)

// WriteBackHandler receives one inbound write for a room's sig.
type WriteBackHandler func(room string, offset uint, value json.RawMessage)

// OnConnected fires after every (re)connect so rooms can resync full state.
type OnConnected func()

type writeBackFrame struct {
	Room   string          `json:"room"`
	Offset uint            `json:"offset"`
	Value  json.RawMessage `json:"value"`
}

type Service struct {
	cfg         *config.FusionConfig
	conn        sockets.Connection
	handler     WriteBackHandler
	onConnected OnConnected
	errChan     chan error
	logger      *zap.Logger
}

func New(cfg *config.FusionConfig, handler WriteBackHandler, onConnected OnConnected, errChan chan error) *Service {
	return &Service{
		cfg:         cfg,
		handler:     handler,
		onConnected: onConnected,
		errChan:     errChan,
		logger:      zap.L(),
	}
}

// Run keeps the connection alive until ctx is done, reconnecting with a flat
// backoff on connection loss.
func (s *Service) Run(ctx context.Context) error {
	lost := make(chan error, 1)
	for {
		if err := s.connect(ctx, lost); err != nil {
			s.logger.Error("fusion connect failed", zap.Error(err))
		} else {
			select {
			case err := <-lost:
				s.logger.Warn("fusion connection lost", zap.Error(err))
			case <-ctx.Done():
				_ = s.conn.Close()
				return ctx.Err()
			}
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) connect(ctx context.Context, lost chan error) error {
	var u url.URL
	if s.cfg.Ssl {
		u = url.URL{Scheme: "wss", Host: s.cfg.Host, Path: "/ws/rooms"}
	} else {
		u = url.URL{Scheme: "ws", Host: s.cfg.Host, Path: "/ws/rooms"}
	}
	s.logger.Debug("connecting to fusion", zap.String("url", u.String()))

	opts := []func(*sockets.Conn){
		sockets.OnMessage(s.onMessage),
		sockets.OnError(func(err error) {
			select {
			case lost <- err:
			default:
			}
		}),
		sockets.WithPingIntervalSec(4),
		sockets.WithPingMsg([]byte("ping")),
	}
	if s.cfg.Ssl {
		opts = append(opts, sockets.InsecureSkipVerify())
	}
	conn := sockets.New(opts...)
	if err := conn.Dial(ctx, u.String()); err != nil {
		return err
	}
	s.conn = conn
	s.logger.Info("connected to fusion", zap.String("host", s.cfg.Host))
	if s.onConnected != nil {
		s.onConnected()
	}
	return nil
}

func (s *Service) onMessage(data []byte, _ sockets.Connection) {
	if string(data) == "pong" {
		return
	}
	var frame writeBackFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Warn("dropping unparseable fusion frame", zap.ByteString("frame", data), zap.Error(err))
		return
	}
	s.handler(frame.Room, frame.Offset, frame.Value)
}

// Publish sends one sig update to the external system. Implements the
// publisher interface so sig updates fan out here like any other publisher.
func (s *Service) Publish(_ context.Context, u fusion.Update) error {
	if s.conn == nil || !s.conn.IsConnected() {
		return sockets.ErrClosed
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.conn.Send(data)
}
