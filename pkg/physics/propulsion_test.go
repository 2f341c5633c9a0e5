package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropel_FromRest(t *testing.T) {
	v := Propel(Vector2D{}, Vector2D{X: 1}, 0.5, 10)
	assert.InDelta(t, 0.5, v.X, epsilon)
	assert.InDelta(t, 0.0, v.Y, epsilon)
}

func TestPropel_ImpulseFadesNearCap(t *testing.T) {
	slow := Propel(Vector2D{X: 1}, Vector2D{X: 1}, 1, 10).X - 1
	fast := Propel(Vector2D{X: 9}, Vector2D{X: 1}, 1, 10).X - 9

	assert.Greater(t, slow, fast)
	assert.InDelta(t, 1-0.01, slow, epsilon)
	assert.InDelta(t, 1-0.81, fast, epsilon)
}

func TestPropel_NeverExceedsCap(t *testing.T) {
	const speedCap = 12.0
	v := Vector2D{X: 0.5, Y: -0.3}
	dir := Vector2D{X: 0.6, Y: 0.8}

	prev := v.Length()
	for i := 0; i < 5000; i++ {
		v = Propel(v, dir, 0.8, speedCap)
		assert.LessOrEqual(t, v.Length(), speedCap+epsilon, "iteration %d", i)
		prev = v.Length()
	}
	assert.Greater(t, prev, speedCap*0.95, "speed approaches the cap asymptotically")
}

func TestPropel_HardClamp(t *testing.T) {
	// A huge base overshoots the cap in one step; the clamp pulls it back.
	v := Propel(Vector2D{}, Vector2D{X: 1}, 20, 10)
	assert.InDelta(t, 20*HardCapFactor, v.X, epsilon)
}

func TestPropel_ZeroCapIsInert(t *testing.T) {
	v := Vector2D{X: 3, Y: 4}
	assert.Equal(t, v, Propel(v, Vector2D{X: 1}, 1, 0))
}
