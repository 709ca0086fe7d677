package relayer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/kysee/zk-knights/provers/cache"
	"github.com/kysee/zk-knights/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.Nop()

const testCircuitRef = "/circuits/KnightsCircuit.ccs"

func testPuzzle() *types.Puzzle {
	w, h := 11, 7
	return &types.Puzzle{
		ID:            42,
		GridWidth:     &w,
		GridHeight:    &h,
		KnightAStart:  &types.Coord{X: 0, Y: 0},
		KnightBStart:  &types.Coord{X: 10, Y: 6},
		GoalA:         &types.Coord{X: 10, Y: 0},
		GoalB:         &types.Coord{X: 0, Y: 6},
		Walls:         []types.Coord{{X: 3, Y: 4}},
		MovingBarrels: []types.Barrel{{Path: []types.Coord{{X: 2, Y: 2}, {X: 3, Y: 2}}}},
	}
}

func testRequest(t *testing.T) types.RequestMessage {
	moves, err := types.PadMoves([]types.Move{types.MoveRight, types.MoveRight, types.MoveDown})
	require.NoError(t, err)
	return types.RequestMessage{Moves: moves, Puzzle: testPuzzle(), TickCount: 3}
}

// stubProver stands in for the proving routine.
type stubProver struct {
	calls atomic.Int32
	prove func(ctx context.Context, input *circuit.CircuitInput, circuitRef string, provingKey []byte) (*types.ProofArtifact, error)
}

func (s *stubProver) Prove(ctx context.Context, input *circuit.CircuitInput, circuitRef string, provingKey []byte) (*types.ProofArtifact, error) {
	s.calls.Add(1)
	return s.prove(ctx, input, circuitRef, provingKey)
}

func succeedingProver() *stubProver {
	return &stubProver{
		prove: func(context.Context, *circuit.CircuitInput, string, []byte) (*types.ProofArtifact, error) {
			return &types.ProofArtifact{
				Proof:         json.RawMessage(`{"protocol":"groth16"}`),
				PublicSignals: json.RawMessage(`["11","7"]`),
			}, nil
		},
	}
}

// keyServer serves body at /pk and counts the requests it sees.
func keyServer(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func writeKeyFile(t *testing.T, body []byte) string {
	path := filepath.Join(t.TempDir(), "KnightsCircuit.pk")
	require.NoError(t, os.WriteFile(path, body, 0644))
	return path
}

func newMemoryStore(t *testing.T) *cache.MemoryStore {
	store, err := cache.NewMemoryStore("knights-proving-key-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// startOrchestrator runs o until the test ends.
func startOrchestrator(t *testing.T, o *Orchestrator) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Error("orchestrator did not stop")
		}
	})
}

func newTestOrchestrator(t *testing.T, prover *stubProver, keyBytes []byte) *Orchestrator {
	keyPath := writeKeyFile(t, keyBytes)
	keys := NewKeyCache(newMemoryStore(t), NewFileFetcher(), nil, testLogger)
	o := NewOrchestrator(keys, prover, keyPath, testCircuitRef, nil, testLogger)
	startOrchestrator(t, o)
	return o
}
