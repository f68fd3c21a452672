package vmath

// AABB is an axis-aligned bounding box. Min is inclusive, Max is exclusive on
// neither side: containment is a closed test, matching how region bounds are
// declared in world data.
type AABB struct {
	Min Vec2
	Max Vec2
}

func NewAABB(minX, minY, maxX, maxY float64) AABB {
	return AABB{Min: Vec2{minX, minY}, Max: Vec2{maxX, maxY}}
}

// Contains checks if the point lies within the box (closed on both edges).
func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b AABB) Width() float64  { return b.Max.X - b.Min.X }
func (b AABB) Height() float64 { return b.Max.Y - b.Min.Y }

func (b AABB) Area() float64 {
	return b.Width() * b.Height()
}

func (b AABB) Center() Vec2 {
	return Vec2{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

// Corners returns the four corner points in CCW order starting at Min.
func (b AABB) Corners() [4]Vec2 {
	return [4]Vec2{
		{b.Min.X, b.Min.Y},
		{b.Max.X, b.Min.Y},
		{b.Max.X, b.Max.Y},
		{b.Min.X, b.Max.Y},
	}
}

// Enclosing returns the smallest AABB containing all given points.
func Enclosing(points ...Vec2) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		if p.X < box.Min.X {
			box.Min.X = p.X
		}
		if p.Y < box.Min.Y {
			box.Min.Y = p.Y
		}
		if p.X > box.Max.X {
			box.Max.X = p.X
		}
		if p.Y > box.Max.Y {
			box.Max.Y = p.Y
		}
	}
	return box
}
