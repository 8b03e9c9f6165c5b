package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"playasim/internal/logging"
	"playasim/internal/protocol"
	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/world"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "client name")
		every = flag.Int("every", 10, "receive one snapshot per N ticks")
	)
	flag.Parse()

	logger := logging.New(logging.Options{}).WithField("component", "bot")
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		SnapshotEvery:   *every,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.WithFields(logrus.Fields{"session": w.SessionID, "world": w.CurrentWorldID, "seed": w.WorldParams.Seed}).Info("WELCOME")

		case protocol.TypeSnapshot:
			var sm protocol.SnapshotMsg
			if err := json.Unmarshal(msg, &sm); err != nil {
				continue
			}
			var snap world.Snapshot
			if err := json.Unmarshal(sm.State, &snap); err != nil {
				logger.WithError(err).Debug("decode snapshot")
				continue
			}
			for _, c := range b.decide(&snap) {
				b.seq++
				cm := protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Ref: fmt.Sprintf("b%d", b.seq), Cmd: c}
				if err := conn.WriteJSON(cm); err != nil {
					return
				}
			}

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err == nil && !a.Accepted {
				logger.WithFields(logrus.Fields{"ref": a.AckFor, "code": a.Code}).Warn(a.Message)
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.WithField("code", e.Code).Warn(e.Message)
			}
		}
	}
}

// bot is a greedy survivor: it keeps its gauges up from inventory, rests when tired and otherwise
// walks to the nearest collectible.
type bot struct {
	seq     int
	lastDir [2]float64
}

func (b *bot) decide(s *world.Snapshot) []protocol.CmdBody {
	if s.GameOver {
		seed := int64(s.Tick)
		return []protocol.CmdBody{{Kind: string(world.CmdRestart), Seed: &seed}}
	}
	if s.Paused {
		return nil
	}
	p := s.Player
	st := p.Stats
	var out []protocol.CmdBody

	consume := func(k catalogs.ItemKind) bool {
		if p.Inventory[k] > 0 {
			out = append(out, protocol.CmdBody{Kind: string(world.CmdConsume), Item: k.String()})
			return true
		}
		return false
	}
	if st.Thirst < 30 {
		consume(catalogs.ItemWater)
	}
	if st.Hunger < 30 {
		_ = consume(catalogs.ItemBurrito) || consume(catalogs.ItemPickle)
	}
	if st.Energy < 25 && len(s.Effects) == 0 {
		_ = consume(catalogs.ItemCoffee) || consume(catalogs.ItemEnergyDrink)
	}

	switch {
	case !p.Resting && st.Energy < 15 && p.MountedVehicle == "":
		on := true
		b.lastDir = [2]float64{}
		return append(out, protocol.CmdBody{Kind: string(world.CmdRest), On: &on})
	case p.Resting && st.Energy < 90:
		return out
	case p.Resting:
		off := false
		out = append(out, protocol.CmdBody{Kind: string(world.CmdRest), On: &off})
	}

	if s.Night != p.LightOn && (st.LightBattery > 5 || !s.Night) {
		on := s.Night
		out = append(out, protocol.CmdBody{Kind: string(world.CmdLight), On: &on})
	}

	dir := [2]float64{}
	best := math.Inf(1)
	for _, c := range s.Collectibles {
		if d := c.Pos.DistSq(p.Pos); d < best {
			best = d
			l := math.Sqrt(d)
			if l > 0 {
				dir = [2]float64{(c.Pos.X - p.Pos.X) / l, (c.Pos.Y - p.Pos.Y) / l}
			}
		}
	}
	if math.Abs(dir[0]-b.lastDir[0]) > 0.05 || math.Abs(dir[1]-b.lastDir[1]) > 0.05 {
		b.lastDir = dir
		out = append(out, protocol.CmdBody{Kind: string(world.CmdMove), DX: dir[0], DY: dir[1]})
	}
	return out
}
