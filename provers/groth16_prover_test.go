package relayer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/kysee/zk-knights/types"
	"github.com/stretchr/testify/require"
)

// Circuit compilation and setup run once for the whole package.
var (
	onceSetupCircuit sync.Once
	knightsBuildDir  string
	knightsPK        []byte
	knightsVK        groth16.VerifyingKey
	knightsSetupErr  error
)

func setupKnights(t *testing.T) (ccsPath string, pk []byte, vk groth16.VerifyingKey) {
	onceSetupCircuit.Do(func() {
		knightsBuildDir, knightsSetupErr = os.MkdirTemp("", "knights-build")
		if knightsSetupErr != nil {
			return
		}
		_, _, knightsVK, knightsSetupErr = circuit.Setup(knightsBuildDir, testLogger)
		if knightsSetupErr != nil {
			return
		}
		knightsPK, knightsSetupErr = os.ReadFile(filepath.Join(knightsBuildDir, circuit.PKFile))
	})
	require.NoError(t, knightsSetupErr)
	return filepath.Join(knightsBuildDir, circuit.CCSFile), knightsPK, knightsVK
}

func normalizedRequest(t *testing.T) *circuit.CircuitInput {
	req := testRequest(t)
	in, err := circuit.Normalize(req.Moves, req.Puzzle, req.TickCount)
	require.NoError(t, err)
	return in
}

func TestGroth16Prover_ProveAndVerify(t *testing.T) {
	ccsPath, pk, vk := setupKnights(t)
	p := NewGroth16Prover(testLogger)

	proof, publicWitness, err := p.prove(context.Background(), normalizedRequest(t), ccsPath, pk)
	require.NoError(t, err)

	err = groth16.Verify(proof, vk, publicWitness, backend.WithVerifierHashToFieldFunction(sha256.New()))
	require.NoError(t, err, "proof should verify against the setup verifying key")
	t.Logf("✓ Proof verified")
}

func TestGroth16Prover_Artifact(t *testing.T) {
	ccsPath, pk, _ := setupKnights(t)
	p := NewGroth16Prover(testLogger)

	artifact, err := p.Prove(context.Background(), normalizedRequest(t), ccsPath, pk)
	require.NoError(t, err)

	var proof types.Groth16Proof
	require.NoError(t, json.Unmarshal(artifact.Proof, &proof))
	require.Equal(t, "groth16", proof.Protocol)
	require.Equal(t, "bn128", proof.Curve)
	require.Len(t, proof.PiA, 3)
	require.Equal(t, "1", proof.PiA[2])
	require.Len(t, proof.PiB, 3)
	require.Equal(t, []string{"1", "0"}, proof.PiB[2])
	require.Len(t, proof.PiC, 3)
	require.NotNil(t, proof.Solidity)
	require.Len(t, proof.Solidity.Proof, 8)
	require.Empty(t, proof.Solidity.Commitments)

	var signals []string
	require.NoError(t, json.Unmarshal(artifact.PublicSignals, &signals))
	require.Len(t, signals, circuit.NbPublicSignals)
	require.Equal(t, "11", signals[0], "grid width leads the public signals")
	require.Equal(t, "7", signals[1])
	require.Equal(t, "3", signals[len(signals)-2], "tick count")
	require.Equal(t, "42", signals[len(signals)-1], "puzzle id")
}

func TestGroth16Prover_ReusesConstraintSystem(t *testing.T) {
	ccsPath, pk, _ := setupKnights(t)
	p := NewGroth16Prover(testLogger)

	_, err := p.Prove(context.Background(), normalizedRequest(t), ccsPath, pk)
	require.NoError(t, err)
	first := p.ccs[ccsPath]
	require.NotNil(t, first)

	_, err = p.Prove(context.Background(), normalizedRequest(t), ccsPath, pk)
	require.NoError(t, err)
	require.Same(t, first, p.ccs[ccsPath])
}

func TestGroth16Prover_Failures(t *testing.T) {
	ccsPath, pk, _ := setupKnights(t)
	p := NewGroth16Prover(testLogger)

	_, err := p.Prove(context.Background(), normalizedRequest(t), ccsPath, []byte("not a proving key"))
	require.ErrorIs(t, err, ErrProving)

	_, err = p.Prove(context.Background(), normalizedRequest(t), filepath.Join(t.TempDir(), "missing.ccs"), pk)
	require.ErrorIs(t, err, ErrProving)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Prove(ctx, normalizedRequest(t), ccsPath, pk)
	require.ErrorIs(t, err, ErrProving)

	// a witness outside the circuit domain fails inside the solver
	in := normalizedRequest(t)
	in.Moves[0] = "7"
	_, err = p.Prove(context.Background(), in, ccsPath, bytes.Clone(pk))
	require.ErrorIs(t, err, ErrProving)
}
