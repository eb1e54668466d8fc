package match

// CheckCollision checks if two circles overlap, touching included
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// bulletHits is the strict test used for bullet-vs-player: the centers
// must be closer than the sum of the radii
func bulletHits(bx, by, px, py, playerRadius, bulletSize float64) bool {
	dx := px - bx
	dy := py - by
	reach := playerRadius + bulletSize/2
	return dx*dx+dy*dy < reach*reach
}

// bulletSweepHits tests the segment a bullet covered during one tick, so
// fast bullets on long frames cannot pass through a player
func bulletSweepHits(x0, y0, x1, y1, px, py, playerRadius, bulletSize float64) bool {
	dx, dy := x1-x0, y1-y0
	t := 0.0
	if l2 := dx*dx + dy*dy; l2 > 0 {
		t = Clamp(((px-x0)*dx+(py-y0)*dy)/l2, 0, 1)
	}
	return bulletHits(x0+dx*t, y0+dy*t, px, py, playerRadius, bulletSize)
}
