package observer

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"playasim/internal/observerproto"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/world"
)

// Server is a read-only spectator feed: one compact TICK frame per engine tick, no commands.
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
		log:     logger.WithField("component", "observer"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			SessionID:       s.session,
			WorldID:         s.engine.Worlds().CurrentWorldID(),
			Seed:            s.engine.Seed(),
			FrameRateHz:     s.engine.Tuning().FrameRateHz,
			Worlds:          s.engine.Worlds().Manifest(),
		}
		if snap := s.engine.Snapshot(); snap != nil {
			resp.Tick = snap.Tick
			resp.WorldID = snap.WorldID
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		subID, snaps := s.engine.Subscribe(2)
		defer s.engine.Unsubscribe(subID)
		s.log.WithFields(logrus.Fields{"remote": r.RemoteAddr, "radius": sub.Radius}).Debug("observer subscribed")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Settings updates from the reader; the writer only needs the latest.
		updates := make(chan observerproto.SubscribeMsg, 1)

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case u := <-updates:
					sub = u
				case snap, ok := <-snaps:
					if !ok {
						writeErr <- nil
						return
					}
					b, err := json.Marshal(Frame(snap, sub))
					if err != nil {
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			u, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			select {
			case updates <- u:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if !(sub.Radius > 0) || math.IsInf(sub.Radius, 0) {
		sub.Radius = 400
	}
	if sub.Radius > 5000 {
		sub.Radius = 5000
	}
	if sub.MaxItems <= 0 {
		sub.MaxItems = 256
	}
	if sub.MaxItems > 4096 {
		sub.MaxItems = 4096
	}
}

// Frame projects a snapshot onto the compact spectator frame. Items and moop are limited to
// sub.Radius around the player.
func Frame(snap *world.Snapshot, sub observerproto.SubscribeMsg) observerproto.TickMsg {
	p := snap.Player
	m := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            snap.Tick,
		WorldID:         snap.WorldID,
		Clock:           snap.Clock,
		Night:           snap.Night,
		Weather:         string(snap.Weather.Kind),
		Paused:          snap.Paused,
		GameOver:        snap.GameOver,
		Player: observerproto.PlayerState{
			Pos:     pt(p.Pos),
			Heading: p.Heading,
			Mounted: p.MountedVehicle,
			Resting: p.Resting,
			Energy:  int(p.Stats.Energy),
			Mood:    int(p.Stats.Mood),
			Thirst:  int(p.Stats.Thirst),
			Hunger:  int(p.Stats.Hunger),
			Coins:   p.Stats.Coins,
			Karma:   p.Stats.Karma,
		},
	}
	for _, e := range snap.Effects {
		m.Player.Effects = append(m.Player.Effects, e.Kind.String())
	}
	for _, c := range snap.Companions {
		m.Companions = append(m.Companions, observerproto.CompanionState{ID: c.ID, Pos: pt(c.Pos), Mood: int(c.Mood)})
	}
	for _, v := range snap.Vehicles {
		m.Vehicles = append(m.Vehicles, observerproto.VehicleState{
			ID: v.ID, Kind: string(v.Kind), Pos: pt(v.Pos), State: v.State.String(), Fuel: v.Fuel,
		})
	}
	r2 := sub.Radius * sub.Radius
	for _, c := range snap.Collectibles {
		if len(m.Items) >= sub.MaxItems {
			break
		}
		if c.Pos.DistSq(p.Pos) > r2 {
			continue
		}
		kind := string(c.Kind)
		if c.Item != catalogs.ItemNone {
			kind = c.Item.String()
		}
		m.Items = append(m.Items, observerproto.ItemState{ID: c.ID, Kind: kind, Pos: pt(c.Pos)})
	}
	for _, mp := range snap.Moop {
		if mp.Pos.DistSq(p.Pos) <= r2 {
			m.Moop = append(m.Moop, pt(mp.Pos))
		}
	}
	for _, n := range snap.Notifications {
		m.Events = append(m.Events, observerproto.EventEntry{Category: string(n.Category), Message: n.Message, Value: n.Value})
	}
	return m
}

func pt(v geom.Vec2) [2]float64 { return [2]float64{v.X, v.Y} }

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
