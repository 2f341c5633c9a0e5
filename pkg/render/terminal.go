package render

import (
	"bufio"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// TerminalRenderer provides a simple ASCII-based rendering for terminals
type TerminalRenderer struct {
	out       io.Writer
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	centerPos physics.Vector2D
	status    []string
}

// NewTerminalRenderer creates a terminal renderer of width by height cells,
// each cell covering scale world units.
func NewTerminalRenderer(out io.Writer, width, height int, scale float64) *TerminalRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}

	return &TerminalRenderer{
		out:    out,
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
	}
}

// NewArenaRenderer fits the whole arena into width by height cells.
func NewArenaRenderer(out io.Writer, width, height int, arena entity.Arena) *TerminalRenderer {
	scale := math.Max(arena.Width/float64(width), arena.Height/float64(height))
	r := NewTerminalRenderer(out, width, height, scale)
	r.SetCenter(physics.Vector2D{X: arena.Width / 2, Y: arena.Height / 2})
	return r
}

// SetCenter sets the center position of the view
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// SetStatus sets the lines printed below the frame, such as a scoreboard.
func (r *TerminalRenderer) SetStatus(lines ...string) {
	r.status = lines
}

// worldToScreen converts world coordinates to screen coordinates
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := int(math.Floor((pos.X-r.centerPos.X)/r.scale + float64(r.width)/2))
	screenY := int(math.Floor((pos.Y-r.centerPos.Y)/r.scale + float64(r.height)/2))
	return screenX, screenY
}

// Clear implements Renderer.
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// Draw implements Renderer. Entities outside the view are skipped.
func (r *TerminalRenderer) Draw(s entity.Snapshot) {
	symbol := Symbol(s)
	if symbol == 0 {
		return
	}
	x, y := r.worldToScreen(s.Position)
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = symbol
	}
}

// Present implements Renderer. Lines end in CRLF so the output stays aligned
// when the terminal is in raw mode.
func (r *TerminalRenderer) Present() error {
	w := bufio.NewWriter(r.out)

	// Home the cursor and clear the screen
	w.WriteString("\033[H\033[2J")

	border := "+" + strings.Repeat("-", r.width) + "+\r\n"
	w.WriteString(border)
	for y := range r.buffer {
		w.WriteString("|")
		w.WriteString(string(r.buffer[y]))
		w.WriteString("|\r\n")
	}
	w.WriteString(border)

	for _, line := range r.status {
		w.WriteString(line)
		w.WriteString("\r\n")
	}
	return w.Flush()
}

// Symbol returns the glyph for an entity, or 0 for entities that are not
// drawn. Vehicles show the first letter of their name.
func Symbol(s entity.Snapshot) rune {
	switch s.Kind {
	case entity.KindVehicle:
		for _, c := range s.Name {
			if unicode.IsLetter(c) || unicode.IsDigit(c) {
				return unicode.ToUpper(c)
			}
		}
		return 'V'
	case entity.KindShot:
		return '.'
	case entity.KindMissile:
		return '!'
	case entity.KindBomb:
		return '*'
	case entity.KindPlanet:
		return 'O'
	case entity.KindSpinner:
		return '@'
	case entity.KindAsteroid:
		return '#'
	case entity.KindReward:
		return '$'
	}
	return 0
}
