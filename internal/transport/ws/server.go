package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"playasim/internal/protocol"
	"playasim/internal/sim/world"
)

const (
	snapshotBuffer = 4
	outBuffer      = 32
)

type Server struct {
	engine  *world.Engine
	session string
	log     logrus.FieldLogger

	upgrader websocket.Upgrader
}

func NewServer(e *world.Engine, session string, logger logrus.FieldLogger) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &Server{
		engine:  e,
		session: session,
		log:     logger.WithField("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.WithFields(logrus.Fields{"client": hello.ClientName, "remote": r.RemoteAddr})
		log.Info("client connected")

		subID, snaps := s.engine.Subscribe(snapshotBuffer)
		defer s.engine.Unsubscribe(subID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, outBuffer)
		every := uint64(hello.SnapshotEvery)

		// Writer goroutine. Replies go first; snapshots are already thinned to the latest by Subscribe.
		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					if err := writeRaw(conn, b); err != nil {
						return
					}
				case snap, ok := <-snaps:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped"), time.Now().Add(time.Second))
						return
					}
					if every > 1 && snap.Tick%every != 0 {
						continue
					}
					b, err := encodeSnapshot(snap)
					if err != nil {
						log.WithError(err).Warn("encode snapshot")
						continue
					}
					if err := writeRaw(conn, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handleFrame(msg)
			b, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		log.Info("client disconnected")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}

	reject := func(code, message string) (protocol.HelloMsg, bool) {
		_ = writeJSON(conn, protocol.NewError(code, message))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
		return hello, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		return reject(protocol.ErrProtoBadRequest, "expected HELLO")
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		return reject(protocol.ErrProtoSchema, err.Error())
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return reject(protocol.ErrProtoBadRequest, err.Error())
	}
	if !supportsVersion(hello) {
		return reject(protocol.ErrProtoVersion, "bad protocol_version")
	}

	if err := writeJSON(conn, s.welcome()); err != nil {
		return hello, false
	}
	return hello, true
}

func supportsVersion(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

func (s *Server) welcome() protocol.WelcomeMsg {
	t := s.engine.Tuning()
	worlds := s.engine.Worlds()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.session,
		CurrentWorldID:  worlds.CurrentWorldID(),
		WorldParams: protocol.WorldParams{
			FrameRateHz:     t.FrameRateHz,
			MaxDeltaSeconds: t.MaxDeltaSeconds,
			Seed:            s.engine.Seed(),
		},
		Catalogs: protocol.CatalogDigests{
			Consumables: s.engine.Catalog().Digest,
			Tuning:      t.Digest(),
		},
		WorldManifest: worlds.Manifest(),
	}
}

// handleFrame turns one inbound frame into an ACK or ERROR reply.
func (s *Server) handleFrame(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError(protocol.ErrProtoBadRequest, "malformed frame")
	}
	if base.Type != protocol.TypeCmd {
		return protocol.NewError(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError(protocol.ErrProtoVersion, "bad protocol_version")
	}
	if err := protocol.Validate(protocol.TypeCmd, msg); err != nil {
		return protocol.NewError(protocol.ErrProtoSchema, err.Error())
	}
	var cm protocol.CmdMsg
	if err := json.Unmarshal(msg, &cm); err != nil {
		return protocol.NewError(protocol.ErrProtoBadRequest, err.Error())
	}

	cmd := toCommand(cm.Cmd)
	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: cm.Ref}
	if snap := s.engine.Snapshot(); snap != nil {
		ack.ServerTick = snap.Tick
		ack.WorldID = snap.WorldID
	}
	if !world.KnownCommand(cmd.Kind) {
		ack.Code = protocol.ErrUnknownCommand
		ack.Message = "unknown command " + cm.Cmd.Kind
		return ack
	}
	switch err := s.engine.Submit(cmd); {
	case err == nil:
		ack.Accepted = true
	case errors.Is(err, world.ErrQueueFull):
		ack.Code = protocol.ErrRateLimit
		ack.Message = err.Error()
	case errors.Is(err, world.ErrStopped):
		ack.Code = protocol.ErrStopped
		ack.Message = err.Error()
	default:
		ack.Code = protocol.ErrInternal
		ack.Message = err.Error()
	}
	return ack
}

func toCommand(b protocol.CmdBody) world.Command {
	c := world.Command{Kind: world.CommandKind(b.Kind), DX: b.DX, DY: b.DY, Item: b.Item}
	if b.On != nil {
		c.On = *b.On
	}
	if b.Seed != nil {
		c.Seed = *b.Seed
	}
	return c
}

func encodeSnapshot(snap *world.Snapshot) ([]byte, error) {
	state, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return json.Marshal(protocol.SnapshotMsg{
		Type:            protocol.TypeSnapshot,
		ProtocolVersion: protocol.Version,
		Tick:            snap.Tick,
		WorldID:         snap.WorldID,
		Digest:          snap.Digest,
		State:           state,
	})
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(conn, b)
}

func writeRaw(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
