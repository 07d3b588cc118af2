package game

// StandardRack returns the 16 balls in their deterministic break
// positions: a 5-row triangle with the apex on the head spot, the black
// ball centered in row 3, and the cue ball on the foot spot. The cue
// ball is last in the slice; the engine strikes the last ball.
// No random jitter: online peers must rack identically.
func StandardRack() []Ball {
	apexX := TableWidth / 4.0
	spacingX := fix(BallRadius * 1.782) // 2r*cos(30) with a small gap
	spacingY := fix(BallRadius * 1.05)

	// Triangle layout by table number, row by row. Solids and stripes
	// alternate on the outer edge; the 8-ball holds the row-3 center.
	rows := [][]int{
		{1},
		{9, 2},
		{3, 8, 10},
		{11, 4, 12, 5},
		{6, 13, 7, 14, 15},
	}

	balls := make([]Ball, 0, NumBalls)
	for r, row := range rows {
		x := fix(apexX + float64(r)*spacingX)
		for c, id := range row {
			y := fix((float64(c) - float64(r)/2.0) * 2 * spacingY)
			balls = append(balls, Ball{
				ID:       id,
				Kind:     KindForID(id),
				Radius:   BallRadius,
				Position: NewVec2(x, y),
			})
		}
	}

	balls = append(balls, Ball{
		ID:       0,
		Kind:     KindCue,
		Radius:   BallRadius,
		Position: NewVec2(-TableWidth/4.0, 0),
	})
	return balls
}
