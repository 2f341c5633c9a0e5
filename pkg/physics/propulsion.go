package physics

// HardCapFactor is applied once to a velocity that ends up above the speed
// cap after thrust.
const HardCapFactor = 0.9

// Propel applies one thrust impulse of base magnitude along direction
// (expected to be a unit vector) to velocity and returns the new velocity.
//
// The effective impulse is base*(1 - |v|²/c²), so it fades to zero as the
// speed approaches speedCap. Should rounding push |v| past speedCap the
// velocity is scaled by HardCapFactor.
func Propel(velocity, direction Vector2D, base, speedCap float64) Vector2D {
	if speedCap <= 0 {
		return velocity
	}
	factor := 1 - velocity.LengthSquared()/(speedCap*speedCap)
	if factor < 0 {
		factor = 0
	}
	velocity = velocity.Add(direction.Scale(base * factor))
	if velocity.LengthSquared() > speedCap*speedCap {
		velocity.ScaleInPlace(HardCapFactor)
	}
	return velocity
}
