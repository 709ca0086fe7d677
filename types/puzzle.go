package types

const (
	// DefaultGridWidth and DefaultGridHeight apply when a puzzle omits its grid size.
	DefaultGridWidth  = 11
	DefaultGridHeight = 7
)

// Coord is a cell position on the puzzle grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Barrel is a moving barrel, described by the ordered cells it visits.
type Barrel struct {
	Path []Coord `json:"path"`
}

// Puzzle describes a single level as produced by the game engine.
type Puzzle struct {
	ID int64 `json:"id"`

	// GridWidth and GridHeight are optional; nil means the default 11x7 grid.
	GridWidth  *int `json:"grid_width,omitempty"`
	GridHeight *int `json:"grid_height,omitempty"`

	KnightAStart *Coord `json:"knight_a_start"`
	KnightBStart *Coord `json:"knight_b_start"`
	GoalA        *Coord `json:"goal_a"`
	GoalB        *Coord `json:"goal_b"`

	Walls         []Coord  `json:"walls"`
	StaticTNT     []Coord  `json:"static_tnt"`
	MovingBarrels []Barrel `json:"moving_barrels"`
}

// Dimensions returns the grid size, falling back to the defaults for absent fields.
func (p *Puzzle) Dimensions() (width, height int) {
	width, height = DefaultGridWidth, DefaultGridHeight
	if p.GridWidth != nil {
		width = *p.GridWidth
	}
	if p.GridHeight != nil {
		height = *p.GridHeight
	}
	return width, height
}
