package types

import (
	"encoding/json"
	"fmt"
)

// MoveHistoryLength is the number of ticks every submitted solution spans.
const MoveHistoryLength = 512

// Move is a single tick of input.
type Move uint8

const (
	MoveUp Move = iota
	MoveDown
	MoveLeft
	MoveRight
	MoveNoOp
)

func (m Move) Valid() bool {
	return m <= MoveNoOp
}

func (m Move) String() string {
	switch m {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveLeft:
		return "left"
	case MoveRight:
		return "right"
	case MoveNoOp:
		return "noop"
	}
	return fmt.Sprintf("move(%d)", uint8(m))
}

// MoveHistory is the full tick-by-tick input of a solution.
type MoveHistory []Move

// MarshalJSON writes the history as an array of move codes rather than base64.
func (h MoveHistory) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("null"), nil
	}
	codes := make([]int, len(h))
	for i, m := range h {
		codes[i] = int(m)
	}
	return json.Marshal(codes)
}

func (h *MoveHistory) UnmarshalJSON(data []byte) error {
	var codes []int
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	if codes == nil {
		*h = nil
		return nil
	}
	out := make(MoveHistory, len(codes))
	for i, c := range codes {
		if c < 0 || c > 0xff {
			return fmt.Errorf("move %d: code %d out of range", i, c)
		}
		out[i] = Move(c)
	}
	*h = out
	return nil
}

// PadMoves extends a real solution to MoveHistoryLength with NoOp ticks.
// It is a helper for callers; the normalizer expects an already padded history.
func PadMoves(moves []Move) (MoveHistory, error) {
	if len(moves) > MoveHistoryLength {
		return nil, fmt.Errorf("move history has %d entries, limit is %d", len(moves), MoveHistoryLength)
	}
	padded := make(MoveHistory, MoveHistoryLength)
	copy(padded, moves)
	for i := len(moves); i < MoveHistoryLength; i++ {
		padded[i] = MoveNoOp
	}
	return padded, nil
}
