package gaze

// Config holds all tunable parameters for gaze focus evaluation
type Config struct {
	// Smoothing
	Smoothing float64 `json:"smoothing"` // Weight of the new sample (0-1, higher = more new data)

	// Screen edges
	EdgeMargin float64 `json:"edge_margin"` // Pixels from each viewport edge counted as "away"
	ScreenSoft int     `json:"screen_soft"` // Counter above this warns
	ScreenHard int     `json:"screen_hard"` // Counter above this fires screen_away

	// Task zone
	ZoneMarginX float64 `json:"zone_margin_x"` // Horizontal slack around the task rectangle
	ZoneMarginY float64 `json:"zone_margin_y"` // Vertical slack around the task rectangle
	TaskSoft    int     `json:"task_soft"`     // Counter above this warns
	TaskHard    int     `json:"task_hard"`     // Counter above this fires question_away
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		Smoothing: 0.7, // 70% new, 30% old

		EdgeMargin: 50,
		ScreenSoft: 8,
		ScreenHard: 12,

		ZoneMarginX: 50,
		ZoneMarginY: 30,
		TaskSoft:    40,
		TaskHard:    60,
	}
}

// StrictConfig escalates faster, for high-stakes sessions
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.ScreenSoft = 5
	cfg.ScreenHard = 8
	cfg.TaskSoft = 25
	cfg.TaskHard = 40
	return cfg
}

// LenientConfig tolerates longer glances away, e.g. for open-book sessions
func LenientConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.5 // Heavier filtering
	cfg.ScreenSoft = 15
	cfg.ScreenHard = 24
	cfg.TaskSoft = 90
	cfg.TaskHard = 120
	return cfg
}

// normalize fills zero fields from the defaults and keeps soft below hard
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		c.Smoothing = def.Smoothing
	}
	if c.EdgeMargin <= 0 {
		c.EdgeMargin = def.EdgeMargin
	}
	if c.ScreenHard <= 0 {
		c.ScreenHard = def.ScreenHard
	}
	if c.ScreenSoft <= 0 || c.ScreenSoft >= c.ScreenHard {
		c.ScreenSoft = c.ScreenHard * 2 / 3
	}
	if c.ZoneMarginX < 0 {
		c.ZoneMarginX = def.ZoneMarginX
	}
	if c.ZoneMarginY < 0 {
		c.ZoneMarginY = def.ZoneMarginY
	}
	if c.TaskHard <= 0 {
		c.TaskHard = def.TaskHard
	}
	if c.TaskSoft <= 0 || c.TaskSoft >= c.TaskHard {
		c.TaskSoft = c.TaskHard * 2 / 3
	}
	return c
}
