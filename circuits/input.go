package circuit

import (
	"fmt"
	"strconv"

	"github.com/kysee/zk-knights/types"
)

// Capacities fixed by the circuit's signal layout.
const (
	MaxWalls       = 26
	MaxStaticTNT   = 8
	MaxBarrels     = 2
	MaxBarrelSteps = 16

	// CoordBits bounds every coordinate and grid dimension, sentinel included.
	CoordBits = 8
	MaxCoord  = 1<<CoordBits - 1

	// DummyBarrelLength is recorded for barrel slots the puzzle does not use.
	DummyBarrelLength = 1
)

// Point is a coordinate pair in the circuit's decimal-string encoding.
type Point [2]string

// CircuitInput is the exact signal assignment the knights circuit expects.
// Field order is the key order the circuit declares.
type CircuitInput struct {
	GridWidth         string                            `json:"grid_width"`
	GridHeight        string                            `json:"grid_height"`
	KnightAStart      Point                             `json:"knight_a_start"`
	KnightBStart      Point                             `json:"knight_b_start"`
	GoalA             Point                             `json:"goal_a"`
	GoalB             Point                             `json:"goal_b"`
	Walls             [MaxWalls]Point                   `json:"walls"`
	StaticTNT         [MaxStaticTNT]Point               `json:"static_tnt"`
	BarrelPaths       [MaxBarrels][MaxBarrelSteps]Point `json:"barrel_paths"`
	BarrelPathLengths [MaxBarrels]string                `json:"barrel_path_lengths"`
	Moves             [types.MoveHistoryLength]string   `json:"moves"`
	TickCount         string                            `json:"tick_count"`
	PuzzleID          string                            `json:"puzzle_id"`
}

type point [2]int64

// circuitLayout is the integer form of CircuitInput, before decimal encoding.
type circuitLayout struct {
	gridWidth, gridHeight int64

	knightAStart, knightBStart point
	goalA, goalB               point

	walls             [MaxWalls]point
	staticTNT         [MaxStaticTNT]point
	barrelPaths       [MaxBarrels][MaxBarrelSteps]point
	barrelPathLengths [MaxBarrels]int64

	moves     [types.MoveHistoryLength]int64
	tickCount int64
	puzzleID  int64
}

// Normalize maps a solution trace onto the circuit's fixed-size input.
// Unused wall, TNT and barrel slots hold the sentinel (grid_width, grid_height);
// absent barrels get a path length of 1.
func Normalize(moves types.MoveHistory, puzzle *types.Puzzle, tickCount int) (*CircuitInput, error) {
	layout, err := buildLayout(moves, puzzle, tickCount)
	if err != nil {
		return nil, err
	}
	return layout.encode(), nil
}

func buildLayout(moves types.MoveHistory, puzzle *types.Puzzle, tickCount int) (*circuitLayout, error) {
	if puzzle == nil {
		return nil, protocolError("puzzle is missing")
	}
	if err := checkCapacities(puzzle); err != nil {
		return nil, err
	}

	l := &circuitLayout{}

	width, height := puzzle.Dimensions()
	if width < 1 || width > MaxCoord || height < 1 || height > MaxCoord {
		return nil, fmt.Errorf("%w: grid %dx%d outside 1..%d", ErrSchemaViolation, width, height, MaxCoord)
	}
	l.gridWidth, l.gridHeight = int64(width), int64(height)
	oob := point{l.gridWidth, l.gridHeight}

	var err error
	if l.knightAStart, err = required("knight_a_start", puzzle.KnightAStart, oob); err != nil {
		return nil, err
	}
	if l.knightBStart, err = required("knight_b_start", puzzle.KnightBStart, oob); err != nil {
		return nil, err
	}
	if l.goalA, err = required("goal_a", puzzle.GoalA, oob); err != nil {
		return nil, err
	}
	if l.goalB, err = required("goal_b", puzzle.GoalB, oob); err != nil {
		return nil, err
	}

	if err = fillPoints(l.walls[:], puzzle.Walls, oob, "walls"); err != nil {
		return nil, err
	}
	if err = fillPoints(l.staticTNT[:], puzzle.StaticTNT, oob, "static_tnt"); err != nil {
		return nil, err
	}

	for slot := 0; slot < MaxBarrels; slot++ {
		if slot < len(puzzle.MovingBarrels) {
			path := puzzle.MovingBarrels[slot].Path
			l.barrelPathLengths[slot] = int64(len(path))
			if err = fillPoints(l.barrelPaths[slot][:], path, oob, "moving_barrels.path"); err != nil {
				return nil, err
			}
			continue
		}
		l.barrelPathLengths[slot] = DummyBarrelLength
		for step := range l.barrelPaths[slot] {
			l.barrelPaths[slot][step] = oob
		}
	}

	if len(moves) != types.MoveHistoryLength {
		return nil, protocolError("move history has %d entries, expected %d", len(moves), types.MoveHistoryLength)
	}
	for i, m := range moves {
		if !m.Valid() {
			return nil, protocolError("move %d has code %d", i, uint8(m))
		}
		l.moves[i] = int64(m)
	}

	if tickCount < 0 || tickCount > types.MoveHistoryLength {
		return nil, fmt.Errorf("%w: tick_count %d outside 0..%d", ErrSchemaViolation, tickCount, types.MoveHistoryLength)
	}
	l.tickCount = int64(tickCount)

	if puzzle.ID < 0 {
		return nil, fmt.Errorf("%w: negative puzzle id %d", ErrSchemaViolation, puzzle.ID)
	}
	l.puzzleID = puzzle.ID

	return l, nil
}

func checkCapacities(p *types.Puzzle) error {
	if len(p.Walls) > MaxWalls {
		return schemaViolation("walls", len(p.Walls), MaxWalls)
	}
	if len(p.StaticTNT) > MaxStaticTNT {
		return schemaViolation("static_tnt", len(p.StaticTNT), MaxStaticTNT)
	}
	if len(p.MovingBarrels) > MaxBarrels {
		return schemaViolation("moving_barrels", len(p.MovingBarrels), MaxBarrels)
	}
	for i, b := range p.MovingBarrels {
		if len(b.Path) == 0 {
			return fmt.Errorf("%w: moving_barrels[%d] has an empty path", ErrSchemaViolation, i)
		}
		if len(b.Path) > MaxBarrelSteps {
			return schemaViolation(fmt.Sprintf("moving_barrels[%d].path", i), len(b.Path), MaxBarrelSteps)
		}
	}
	return nil
}

func required(field string, c *types.Coord, grid point) (point, error) {
	if c == nil {
		return point{}, protocolError("puzzle.%s is missing", field)
	}
	return toPoint(field, *c, grid)
}

// toPoint accepts only in-grid cells, so no real coordinate can equal the
// (grid_width, grid_height) sentinel.
func toPoint(field string, c types.Coord, grid point) (point, error) {
	x, y := int64(c.X), int64(c.Y)
	if x < 0 || y < 0 || x >= grid[0] || y >= grid[1] {
		return point{}, fmt.Errorf("%w: %s coordinate (%d,%d) outside the %dx%d grid", ErrSchemaViolation, field, c.X, c.Y, grid[0], grid[1])
	}
	return point{x, y}, nil
}

// fillPoints copies src in order and pads the rest of dst with oob.
func fillPoints(dst []point, src []types.Coord, oob point, field string) error {
	for i := range dst {
		if i >= len(src) {
			dst[i] = oob
			continue
		}
		p, err := toPoint(field, src[i], oob)
		if err != nil {
			return err
		}
		dst[i] = p
	}
	return nil
}

// encode renders every integer as the base-10 string the circuit reads.
func (l *circuitLayout) encode() *CircuitInput {
	in := &CircuitInput{
		GridWidth:    dec(l.gridWidth),
		GridHeight:   dec(l.gridHeight),
		KnightAStart: l.knightAStart.encode(),
		KnightBStart: l.knightBStart.encode(),
		GoalA:        l.goalA.encode(),
		GoalB:        l.goalB.encode(),
		TickCount:    dec(l.tickCount),
		PuzzleID:     dec(l.puzzleID),
	}
	for i, p := range l.walls {
		in.Walls[i] = p.encode()
	}
	for i, p := range l.staticTNT {
		in.StaticTNT[i] = p.encode()
	}
	for b := range l.barrelPaths {
		for s, p := range l.barrelPaths[b] {
			in.BarrelPaths[b][s] = p.encode()
		}
		in.BarrelPathLengths[b] = dec(l.barrelPathLengths[b])
	}
	for i, m := range l.moves {
		in.Moves[i] = dec(m)
	}
	return in
}

func (p point) encode() Point {
	return Point{dec(p[0]), dec(p[1])}
}

func dec(v int64) string {
	return strconv.FormatInt(v, 10)
}
