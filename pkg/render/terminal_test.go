package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

func TestNewTerminalRenderer_Dimensions(t *testing.T) {
	renderer := NewTerminalRenderer(&bytes.Buffer{}, 80, 24, 10.0)

	assert.Equal(t, 80, renderer.width)
	assert.Equal(t, 24, renderer.height)
	assert.Equal(t, 10.0, renderer.scale)
	require.Len(t, renderer.buffer, 24)
	for _, row := range renderer.buffer {
		assert.Len(t, row, 80)
	}
}

func TestNewArenaRenderer_FitsArena(t *testing.T) {
	r := NewArenaRenderer(&bytes.Buffer{}, 80, 24, entity.Arena{Width: 800, Height: 600})
	assert.Equal(t, 25.0, r.scale, "height bound")

	for _, c := range []physics.Vector2D{{X: 0, Y: 0}, {X: 799, Y: 599}} {
		x, y := r.worldToScreen(c)
		assert.True(t, x >= 0 && x < r.width && y >= 0 && y < r.height,
			"corner %v maps off screen to (%d, %d)", c, x, y)
	}
}

func TestWorldToScreen(t *testing.T) {
	renderer := NewTerminalRenderer(&bytes.Buffer{}, 80, 24, 10.0)

	tests := []struct {
		name   string
		center physics.Vector2D
		world  physics.Vector2D
		x, y   int
	}{
		{"origin", physics.Vector2D{}, physics.Vector2D{}, 40, 12},
		{"world offset", physics.Vector2D{}, physics.Vector2D{X: 100, Y: 50}, 50, 17},
		{"center offset rounds down", physics.Vector2D{X: 50, Y: 25}, physics.Vector2D{}, 35, 9},
		{"both offset", physics.Vector2D{X: 100, Y: 50}, physics.Vector2D{X: 200, Y: 150}, 50, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer.SetCenter(tt.center)
			x, y := renderer.worldToScreen(tt.world)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		snap entity.Snapshot
		want rune
	}{
		{entity.Snapshot{Kind: entity.KindVehicle, Name: "baron"}, 'B'},
		{entity.Snapshot{Kind: entity.KindVehicle, Name: "  -7of9"}, '7'},
		{entity.Snapshot{Kind: entity.KindVehicle}, 'V'},
		{entity.Snapshot{Kind: entity.KindShot}, '.'},
		{entity.Snapshot{Kind: entity.KindMissile}, '!'},
		{entity.Snapshot{Kind: entity.KindBomb}, '*'},
		{entity.Snapshot{Kind: entity.KindPlanet}, 'O'},
		{entity.Snapshot{Kind: entity.KindSpinner}, '@'},
		{entity.Snapshot{Kind: entity.KindAsteroid}, '#'},
		{entity.Snapshot{Kind: entity.KindReward}, '$'},
		{entity.Snapshot{Kind: entity.KindEnvironment}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.snap.Kind.String()+"/"+tt.snap.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, Symbol(tt.snap))
		})
	}
}

func TestDraw_SkipsOffscreenAndEnvironment(t *testing.T) {
	renderer := NewTerminalRenderer(&bytes.Buffer{}, 10, 5, 1.0)
	renderer.Clear()

	renderer.Draw(entity.Snapshot{Kind: entity.KindPlanet, Position: physics.Vector2D{X: 0, Y: 0}})
	renderer.Draw(entity.Snapshot{Kind: entity.KindShot, Position: physics.Vector2D{X: 100, Y: 0}})
	renderer.Draw(entity.Snapshot{Kind: entity.KindShot, Position: physics.Vector2D{X: -100, Y: -100}})
	renderer.Draw(entity.Snapshot{Kind: entity.KindEnvironment})

	count := 0
	for y := range renderer.buffer {
		for x := range renderer.buffer[y] {
			if renderer.buffer[y][x] != ' ' {
				count++
			}
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 'O', renderer.buffer[2][5])

	renderer.Clear()
	for _, row := range renderer.buffer {
		assert.Equal(t, strings.Repeat(" ", 10), string(row))
	}
}

func TestPresent_WritesFrameAndStatus(t *testing.T) {
	var out bytes.Buffer
	renderer := NewTerminalRenderer(&out, 4, 2, 1.0)
	renderer.SetStatus("baron 3/1", "ace 0/2")

	err := Frame(renderer, []entity.Snapshot{
		{Kind: entity.KindVehicle, Name: "ace", Position: physics.Vector2D{X: -2, Y: -1}},
	})
	require.NoError(t, err)

	want := "\033[H\033[2J" +
		"+----+\r\n" +
		"|A   |\r\n" +
		"|    |\r\n" +
		"+----+\r\n" +
		"baron 3/1\r\n" +
		"ace 0/2\r\n"
	assert.Equal(t, want, out.String())
}
