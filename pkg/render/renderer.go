// pkg/render/renderer.go
package render

import (
	"context"
	"time"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
)

// Renderer draws snapshots of the world, one frame at a time.
type Renderer interface {
	Clear()
	Draw(s entity.Snapshot)
	Present() error
}

// Source supplies the snapshots of a frame. *engine.Registry implements it.
type Source interface {
	Snapshots() []entity.Snapshot
}

// Frame clears r, draws every snapshot and presents the result.
func Frame(r Renderer, snaps []entity.Snapshot) error {
	r.Clear()
	for _, s := range snaps {
		r.Draw(s)
	}
	return r.Present()
}

// Loop renders a frame from src every period until ctx is done or a frame
// fails to present.
func Loop(ctx context.Context, r Renderer, src Source, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := Frame(r, src.Snapshots()); err != nil {
				return err
			}
		}
	}
}

// NullRenderer draws nothing and logs each call at debug level.
type NullRenderer struct {
	logger *logging.Logger
	drawn  int
	frames int
}

// NewNullRenderer creates a NullRenderer logging to logger.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullRenderer{
		logger: logger.Component("render"),
	}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.drawn = 0
}

// Draw implements Renderer.
func (d *NullRenderer) Draw(s entity.Snapshot) {
	d.drawn++
	d.logger.Debug(context.Background(), "draw",
		"entity_id", uint64(s.ID),
		"kind", s.Kind.String(),
		"x", s.Position.X,
		"y", s.Position.Y,
	)
}

// Present implements Renderer.
func (d *NullRenderer) Present() error {
	d.frames++
	d.logger.Debug(context.Background(), "frame presented",
		"frame", d.frames,
		"entities", d.drawn,
	)
	return nil
}

// Frames returns how many frames were presented.
func (d *NullRenderer) Frames() int { return d.frames }
