package game

// Pocket is one of the six capture circles on the table.
type Pocket struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Table holds the static play-field geometry. The origin is the table
// center; cushions sit at +-TableWidth/2 and +-TableHeight/2.
type Table struct {
	HalfWidth  float64
	HalfHeight float64
	Pockets    []Pocket
}

// NewStandardTable builds the standard six-pocket table: four corner
// pockets and one at the middle of each long cushion.
func NewStandardTable() *Table {
	w := TableWidth / 2
	h := TableHeight / 2
	return &Table{
		HalfWidth:  w,
		HalfHeight: h,
		Pockets: []Pocket{
			{ID: 0, Position: NewVec2(-w, -h)},
			{ID: 1, Position: NewVec2(0, -h)},
			{ID: 2, Position: NewVec2(w, -h)},
			{ID: 3, Position: NewVec2(-w, h)},
			{ID: 4, Position: NewVec2(0, h)},
			{ID: 5, Position: NewVec2(w, h)},
		},
	}
}

// pocketAt returns the pocket capturing a ball centered at pos, or nil.
func (t *Table) pocketAt(pos Vec2) *Pocket {
	for i := range t.Pockets {
		if pos.Minus(t.Pockets[i].Position).Magnitude() < PocketRadius {
			return &t.Pockets[i]
		}
	}
	return nil
}

// reflect bounces a ball off any cushion it has crossed, damping the
// normal velocity component. Returns true if a cushion was hit.
func (t *Table) reflect(b *Ball) bool {
	minX, maxX := -t.HalfWidth+b.Radius, t.HalfWidth-b.Radius
	minY, maxY := -t.HalfHeight+b.Radius, t.HalfHeight-b.Radius
	hit := false

	if b.Position.X < minX {
		b.Position = NewVec2(2*minX-b.Position.X, b.Position.Y)
		b.Velocity = NewVec2(fix(-b.Velocity.X*CushionRestitution), b.Velocity.Y)
		hit = true
	} else if b.Position.X > maxX {
		b.Position = NewVec2(2*maxX-b.Position.X, b.Position.Y)
		b.Velocity = NewVec2(fix(-b.Velocity.X*CushionRestitution), b.Velocity.Y)
		hit = true
	}
	if b.Position.Y < minY {
		b.Position = NewVec2(b.Position.X, 2*minY-b.Position.Y)
		b.Velocity = NewVec2(b.Velocity.X, fix(-b.Velocity.Y*CushionRestitution))
		hit = true
	} else if b.Position.Y > maxY {
		b.Position = NewVec2(b.Position.X, 2*maxY-b.Position.Y)
		b.Velocity = NewVec2(b.Velocity.X, fix(-b.Velocity.Y*CushionRestitution))
		hit = true
	}
	return hit
}
