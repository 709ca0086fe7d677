package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/kysee/zk-knights/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func responseFields(t *testing.T, resp types.ResponseMessage) map[string]json.RawMessage {
	blob, err := json.Marshal(resp)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &fields))
	return fields
}

func TestOrchestrator_Success(t *testing.T) {
	keyBytes := []byte("pk")
	var gotInput *circuit.CircuitInput
	var gotRef string
	var gotKey []byte
	prover := &stubProver{
		prove: func(_ context.Context, input *circuit.CircuitInput, ref string, pk []byte) (*types.ProofArtifact, error) {
			gotInput, gotRef, gotKey = input, ref, pk
			return succeedingProver().prove(context.Background(), input, ref, pk)
		},
	}
	o := newTestOrchestrator(t, prover, keyBytes)
	require.Equal(t, StateIdle, o.State())

	resp, err := o.Prove(testRequest(t))
	require.NoError(t, err)
	require.False(t, resp.Failed())

	fields := responseFields(t, resp)
	require.Len(t, fields, 2)
	require.JSONEq(t, `{"protocol":"groth16"}`, string(fields["proof"]))
	require.JSONEq(t, `["11","7"]`, string(fields["publicSignals"]))
	require.NotContains(t, fields, "error")

	require.EqualValues(t, 1, prover.calls.Load())
	require.Equal(t, testCircuitRef, gotRef)
	require.Equal(t, keyBytes, gotKey)
	require.Equal(t, "42", gotInput.PuzzleID)
	require.Equal(t, "3", gotInput.TickCount)
	require.Equal(t, StateSucceeded, o.State())
}

func TestOrchestrator_ProverFailure(t *testing.T) {
	prover := &stubProver{
		prove: func(context.Context, *circuit.CircuitInput, string, []byte) (*types.ProofArtifact, error) {
			return nil, errors.New("witness mismatch")
		},
	}
	o := newTestOrchestrator(t, prover, []byte("pk"))

	resp, err := o.Prove(testRequest(t))
	require.NoError(t, err)
	require.True(t, resp.Failed())
	require.Contains(t, resp.Error, "witness mismatch")
	require.Contains(t, resp.Error, ErrProving.Error())

	fields := responseFields(t, resp)
	require.Len(t, fields, 1)
	require.Contains(t, fields, "error")
	require.Equal(t, StateFailed, o.State())
}

func TestOrchestrator_ProverPanicBecomesErrorResponse(t *testing.T) {
	panicking := true
	prover := &stubProver{
		prove: func(ctx context.Context, input *circuit.CircuitInput, ref string, pk []byte) (*types.ProofArtifact, error) {
			if panicking {
				panic("constraint system exploded")
			}
			return succeedingProver().prove(ctx, input, ref, pk)
		},
	}
	o := newTestOrchestrator(t, prover, []byte("pk"))

	resp, err := o.Prove(testRequest(t))
	require.NoError(t, err)
	require.True(t, resp.Failed())
	require.Contains(t, resp.Error, "constraint system exploded")
	require.Nil(t, resp.Proof)
	require.Nil(t, resp.PublicSignals)

	// the worker survives and serves the next request
	panicking = false
	resp, err = o.Prove(testRequest(t))
	require.NoError(t, err)
	require.False(t, resp.Failed())
}

func TestOrchestrator_NormalizationFailure(t *testing.T) {
	prover := succeedingProver()
	o := newTestOrchestrator(t, prover, []byte("pk"))

	req := testRequest(t)
	req.Puzzle.Walls = make([]types.Coord, circuit.MaxWalls+1)
	resp, err := o.Prove(req)
	require.NoError(t, err)
	require.True(t, resp.Failed())
	require.Contains(t, resp.Error, circuit.ErrSchemaViolation.Error())
	require.Zero(t, prover.calls.Load(), "prover must not run on invalid input")

	req = testRequest(t)
	req.Moves = req.Moves[:100]
	resp, err = o.Prove(req)
	require.NoError(t, err)
	require.Contains(t, resp.Error, circuit.ErrProtocol.Error())

	req = testRequest(t)
	req.Puzzle = nil
	resp, err = o.Prove(req)
	require.NoError(t, err)
	require.Contains(t, resp.Error, circuit.ErrProtocol.Error())
}

func TestOrchestrator_KeyFetchFailure(t *testing.T) {
	prover := succeedingProver()
	keys := NewKeyCache(newMemoryStore(t), NewFileFetcher(), nil, testLogger)
	o := NewOrchestrator(keys, prover, "/does/not/exist.pk", testCircuitRef, nil, testLogger)
	startOrchestrator(t, o)

	resp, err := o.Prove(testRequest(t))
	require.NoError(t, err)
	require.True(t, resp.Failed())
	require.Contains(t, resp.Error, ErrFetch.Error())
	require.Zero(t, prover.calls.Load())
}

func TestOrchestrator_RejectsSecondRequestWhileBusy(t *testing.T) {
	release := make(chan struct{})
	prover := &stubProver{
		prove: func(ctx context.Context, input *circuit.CircuitInput, ref string, pk []byte) (*types.ProofArtifact, error) {
			<-release
			return succeedingProver().prove(ctx, input, ref, pk)
		},
	}
	o := newTestOrchestrator(t, prover, []byte("pk"))

	reply, err := o.Submit(testRequest(t))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return o.State() == StateProving }, time.Second, 5*time.Millisecond)

	_, err = o.Submit(testRequest(t))
	require.ErrorIs(t, err, ErrBusy)
	_, err = o.Prove(testRequest(t))
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	resp := <-reply
	require.False(t, resp.Failed())

	select {
	case extra := <-reply:
		t.Fatalf("unexpected second response: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	require.EqualValues(t, 1, prover.calls.Load())

	// the slot is free as soon as the reply is out
	resp, err = o.Prove(testRequest(t))
	require.NoError(t, err)
	require.False(t, resp.Failed())
}

func TestOrchestrator_BackToBackRequests(t *testing.T) {
	prover := succeedingProver()
	o := newTestOrchestrator(t, prover, []byte("pk"))

	const n = 500
	for i := 0; i < n; i++ {
		resp, err := o.Prove(testRequest(t))
		require.NoError(t, err, "request %d", i)
		require.False(t, resp.Failed())
	}
	require.EqualValues(t, n, prover.calls.Load())
	require.Equal(t, StateSucceeded, o.State())
}

func TestOrchestrator_RunsOnce(t *testing.T) {
	o := newTestOrchestrator(t, succeedingProver(), []byte("pk"))
	require.Eventually(t, func() bool { return o.started.Load() }, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, o.Run(context.Background()), errRunning)

	resp, err := o.Prove(testRequest(t))
	require.NoError(t, err)
	require.False(t, resp.Failed())
}

func TestOrchestrator_StoppedRejectsRequests(t *testing.T) {
	keys := NewKeyCache(newMemoryStore(t), NewFileFetcher(), nil, testLogger)
	o := NewOrchestrator(keys, succeedingProver(), "/unused.pk", testCircuitRef, nil, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, o.Run(ctx), context.Canceled)

	_, err := o.Submit(testRequest(t))
	require.ErrorIs(t, err, errStopped)
	_, err = o.Prove(testRequest(t))
	require.ErrorIs(t, err, errStopped)
}

func TestOrchestrator_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	keyPath := writeKeyFile(t, []byte("pk"))
	keys := NewKeyCache(newMemoryStore(t), NewFileFetcher(), metrics, testLogger)
	o := NewOrchestrator(keys, succeedingProver(), keyPath, testCircuitRef, metrics, testLogger)
	startOrchestrator(t, o)

	_, err := o.Prove(testRequest(t))
	require.NoError(t, err)
	_, err = o.Prove(testRequest(t))
	require.NoError(t, err)

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.proofs.WithLabelValues("success")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.keyLookups.WithLabelValues("miss")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.keyLookups.WithLabelValues("hit")))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.inFlight))
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "fetching_key", StateFetchingKey.String())
	require.Equal(t, "failed", StateFailed.String())
	require.Equal(t, "state(9)", State(9).String())
}
