// pkg/render/renderer_test.go
package render

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

type staticSource []entity.Snapshot

func (s staticSource) Snapshots() []entity.Snapshot { return s }

type failingRenderer struct{ NullRenderer }

func (failingRenderer) Present() error { return errors.New("terminal gone") }

func TestNullRenderer_LogsFrames(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewNullRenderer(logging.NewLoggerWithWriter(&buf))

	err := Frame(renderer, []entity.Snapshot{
		{ID: 7, Kind: entity.KindShot, Position: physics.Vector2D{X: 1, Y: 2}},
		{ID: 8, Kind: entity.KindPlanet},
	})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `"kind":"shot"`)
	assert.Contains(t, output, `"entities":2`)
	assert.Equal(t, 1, renderer.Frames())
}

func TestNullRenderer_NilLogger(t *testing.T) {
	renderer := NewNullRenderer(nil)
	renderer.Clear()
	renderer.Draw(entity.Snapshot{})
	assert.NoError(t, renderer.Present())
}

func TestLoop_RendersUntilCancelled(t *testing.T) {
	renderer := NewNullRenderer(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := Loop(ctx, renderer, staticSource{{Kind: entity.KindAsteroid}}, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, renderer.Frames())
}

func TestLoop_StopsOnPresentError(t *testing.T) {
	renderer := &failingRenderer{NullRenderer: *NewNullRenderer(nil)}
	err := Loop(context.Background(), renderer, staticSource{}, time.Millisecond)
	assert.EqualError(t, err, "terminal gone")
}
