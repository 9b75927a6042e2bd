package gaze

// Rect is an axis-aligned rectangle in viewport pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Expand grows the rectangle by dx on both sides horizontally and dy vertically.
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{
		Left:   r.Left - dx,
		Top:    r.Top - dy,
		Right:  r.Right + dx,
		Bottom: r.Bottom + dy,
	}
}

// Contains reports whether (x, y) lies inside r, borders included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// nearEdge reports whether (x, y) is within margin of any viewport edge.
func nearEdge(x, y, width, height, margin float64) bool {
	return x < margin || x > width-margin || y < margin || y > height-margin
}

// Smoother is a single-pole low-pass filter over gaze positions.
type Smoother struct {
	alpha float64 // weight of the new sample
	x, y  float64
	has   bool
}

// NewSmoother creates a smoother weighting new samples by alpha.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update folds a raw sample in and returns the smoothed position.
// The first sample passes through unchanged.
func (s *Smoother) Update(x, y float64) (float64, float64) {
	if s.has {
		x = s.alpha*x + (1-s.alpha)*s.x
		y = s.alpha*y + (1-s.alpha)*s.y
	}
	s.x, s.y = x, y
	s.has = true
	return x, y
}

// Position returns the last smoothed position and whether one exists.
func (s *Smoother) Position() (float64, float64, bool) {
	return s.x, s.y, s.has
}
