package physics

// Attraction returns the acceleration a point mass at source exerts on a
// body at target: magnitude mass/d², directed from target toward source.
// A negative mass repels. Coincident points yield zero.
func Attraction(source, target Vector2D, mass float64) Vector2D {
	delta := source.Sub(target)
	d2 := delta.LengthSquared()
	if d2 == 0 {
		return Vector2D{}
	}
	return delta.Normalize().Scale(mass / d2)
}

// Swirl is Attraction rotated by 90 degrees: the body is pushed along the
// tangent of the circle around source instead of toward it.
func Swirl(source, target Vector2D, mass float64) Vector2D {
	return Attraction(source, target, mass).Perpendicular()
}
