package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/zk-knights/types"
)

// NbPublicSignals is the number of public inputs of KnightsCircuit, in declaration order.
const NbPublicSignals = 2 + 4*2 + MaxWalls*2 + MaxStaticTNT*2 + MaxBarrels*MaxBarrelSteps*2 + MaxBarrels + 2

// KnightsCircuit mirrors the CircuitInput signal layout.
//
// The puzzle description, tick count and puzzle id are public so a verifier
// can bind a proof to a level. The move history is the private witness.
// Constraints here only pin every signal to its encoding domain:
// - coordinates and grid dimensions fit CoordBits
// - barrel path lengths are in [1, MaxBarrelSteps]
// - move codes are in [0, 4]
// - tick_count <= MoveHistoryLength
// - puzzle id fits 64 bits
type KnightsCircuit struct {
	GridWidth  frontend.Variable `gnark:",public"`
	GridHeight frontend.Variable `gnark:",public"`

	KnightAStart [2]frontend.Variable `gnark:",public"`
	KnightBStart [2]frontend.Variable `gnark:",public"`
	GoalA        [2]frontend.Variable `gnark:",public"`
	GoalB        [2]frontend.Variable `gnark:",public"`

	Walls             [MaxWalls][2]frontend.Variable                   `gnark:",public"`
	StaticTNT         [MaxStaticTNT][2]frontend.Variable               `gnark:",public"`
	BarrelPaths       [MaxBarrels][MaxBarrelSteps][2]frontend.Variable `gnark:",public"`
	BarrelPathLengths [MaxBarrels]frontend.Variable                    `gnark:",public"`

	Moves [types.MoveHistoryLength]frontend.Variable

	TickCount frontend.Variable `gnark:",public"`
	PuzzleID  frontend.Variable `gnark:",public"`
}

// Define implements the circuit constraints
func (c *KnightsCircuit) Define(api frontend.API) error {
	api.ToBinary(c.GridWidth, CoordBits)
	api.ToBinary(c.GridHeight, CoordBits)

	coord := func(p [2]frontend.Variable) {
		api.ToBinary(p[0], CoordBits)
		api.ToBinary(p[1], CoordBits)
	}
	coord(c.KnightAStart)
	coord(c.KnightBStart)
	coord(c.GoalA)
	coord(c.GoalB)
	for i := range c.Walls {
		coord(c.Walls[i])
	}
	for i := range c.StaticTNT {
		coord(c.StaticTNT[i])
	}
	for b := range c.BarrelPaths {
		for s := range c.BarrelPaths[b] {
			coord(c.BarrelPaths[b][s])
		}
		// length-1 in [0, 15]
		api.ToBinary(api.Sub(c.BarrelPathLengths[b], 1), 4)
	}

	// m*(m-1)*(m-2)*(m-3)*(m-4) == 0
	for _, m := range c.Moves {
		prod := api.Mul(m, api.Sub(m, 1), api.Sub(m, 2), api.Sub(m, 3), api.Sub(m, 4))
		api.AssertIsEqual(prod, 0)
	}

	api.ToBinary(c.TickCount, 10)
	api.AssertIsLessOrEqual(c.TickCount, types.MoveHistoryLength)

	api.ToBinary(c.PuzzleID, 64)

	return nil
}

// Assign builds a full witness assignment from a normalized input.
// Values stay in their decimal-string form; gnark parses them into field elements.
func Assign(in *CircuitInput) *KnightsCircuit {
	w := &KnightsCircuit{
		GridWidth:    in.GridWidth,
		GridHeight:   in.GridHeight,
		KnightAStart: in.KnightAStart.variables(),
		KnightBStart: in.KnightBStart.variables(),
		GoalA:        in.GoalA.variables(),
		GoalB:        in.GoalB.variables(),
		TickCount:    in.TickCount,
		PuzzleID:     in.PuzzleID,
	}
	for i := range in.Walls {
		w.Walls[i] = in.Walls[i].variables()
	}
	for i := range in.StaticTNT {
		w.StaticTNT[i] = in.StaticTNT[i].variables()
	}
	for b := range in.BarrelPaths {
		for s := range in.BarrelPaths[b] {
			w.BarrelPaths[b][s] = in.BarrelPaths[b][s].variables()
		}
		w.BarrelPathLengths[b] = in.BarrelPathLengths[b]
	}
	for i := range in.Moves {
		w.Moves[i] = in.Moves[i]
	}
	return w
}

func (p Point) variables() [2]frontend.Variable {
	return [2]frontend.Variable{p[0], p[1]}
}
