package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playasim/internal/sim/catalogs"
	"playasim/internal/sim/geom"
	"playasim/internal/sim/multiworld"
	"playasim/internal/sim/stats"
	"playasim/internal/sim/world"
)

func snapshot() *world.Snapshot {
	return &world.Snapshot{
		Tick: 40,
		Player: world.Player{
			Pos:       geom.V(0, 0),
			Stats:     stats.Fresh(),
			Inventory: map[catalogs.ItemKind]int{},
		},
	}
}

func TestDecide_HeadsForNearestCollectible(t *testing.T) {
	s := snapshot()
	s.Collectibles = []multiworld.Collectible{
		{ID: "far", Pos: geom.V(0, 500)},
		{ID: "near", Pos: geom.V(30, 40)},
	}
	b := &bot{}
	cmds := b.decide(s)
	require.Len(t, cmds, 1)
	assert.Equal(t, "move", cmds[0].Kind)
	assert.InDelta(t, 0.6, cmds[0].DX, 1e-9)
	assert.InDelta(t, 0.8, cmds[0].DY, 1e-9)

	// Same heading next time: nothing new to say.
	assert.Empty(t, b.decide(s))
}

func TestDecide_DrinksAndRests(t *testing.T) {
	s := snapshot()
	s.Player.Stats.Thirst = 10
	s.Player.Stats.Energy = 5
	s.Player.Inventory[catalogs.ItemWater] = 1
	cmds := (&bot{}).decide(s)
	require.Len(t, cmds, 2)
	assert.Equal(t, "consume", cmds[0].Kind)
	assert.Equal(t, "water", cmds[0].Item)
	assert.Equal(t, "rest", cmds[1].Kind)
	require.NotNil(t, cmds[1].On)
	assert.True(t, *cmds[1].On)
}

func TestDecide_RestartsAfterCollapse(t *testing.T) {
	s := snapshot()
	s.GameOver = true
	cmds := (&bot{}).decide(s)
	require.Len(t, cmds, 1)
	assert.Equal(t, "restart", cmds[0].Kind)
	require.NotNil(t, cmds[0].Seed)
	assert.Equal(t, int64(40), *cmds[0].Seed)
}

func TestDecide_LightAtNight(t *testing.T) {
	s := snapshot()
	s.Night = true
	cmds := (&bot{}).decide(s)
	require.NotEmpty(t, cmds)
	assert.Equal(t, "light", cmds[0].Kind)
	assert.True(t, *cmds[0].On)
}
