// pkg/physics/collision.go
package physics

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Touches reports whether two circles overlap or touch. Contact is
// inclusive: centres exactly radius_a+radius_b apart are in contact.
func (c Circle) Touches(other Circle) bool {
	reach := c.Radius + other.Radius
	return c.Center.DistanceSquared(other.Center) <= reach*reach
}

// Contains reports whether point lies inside or on the circle.
func (c Circle) Contains(point Vector2D) bool {
	return c.Center.DistanceSquared(point) <= c.Radius*c.Radius
}
