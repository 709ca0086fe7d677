package relayer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/constraint/solver"
	"github.com/consensys/gnark/frontend"
	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/kysee/zk-knights/types"
	"github.com/rs/zerolog"
)

// Groth16Prover proves KnightsCircuit assignments over BN254 with gnark.
// Compiled constraint systems are loaded once per circuit location and reused.
type Groth16Prover struct {
	mu  sync.Mutex
	ccs map[string]constraint.ConstraintSystem
	log zerolog.Logger
}

func NewGroth16Prover(log zerolog.Logger) *Groth16Prover {
	return &Groth16Prover{
		ccs: make(map[string]constraint.ConstraintSystem),
		log: log.With().Str("component", "groth16").Logger(),
	}
}

// Prove implements types.Prover.
func (p *Groth16Prover) Prove(ctx context.Context, input *circuit.CircuitInput, circuitRef string, provingKey []byte) (*types.ProofArtifact, error) {
	proof, publicWitness, err := p.prove(ctx, input, circuitRef, provingKey)
	if err != nil {
		return nil, wrapProvingError(err)
	}

	proofJSON, err := encodeProof(proof)
	if err != nil {
		return nil, wrapProvingError(err)
	}
	signals, err := publicSignals(publicWitness)
	if err != nil {
		return nil, wrapProvingError(err)
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return nil, wrapProvingError(err)
	}

	return &types.ProofArtifact{Proof: proofJSON, PublicSignals: signalsJSON}, nil
}

func (p *Groth16Prover) prove(ctx context.Context, input *circuit.CircuitInput, circuitRef string, provingKey []byte) (groth16.Proof, witness.Witness, error) {
	// proving itself cannot be interrupted; only refuse to start
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ccs, err := p.constraintSystem(circuitRef)
	if err != nil {
		return nil, nil, err
	}

	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(provingKey)); err != nil {
		return nil, nil, fmt.Errorf("failed to read proving key: %w", err)
	}

	// Create full witness
	fullWitness, err := frontend.NewWitness(circuit.Assign(input), ecc.BN254.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create witness: %w", err)
	}
	publicWitness, err := fullWitness.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract public witness: %w", err)
	}

	p.log.Info().Int("constraints", ccs.GetNbConstraints()).Msg("generating proof")
	proof, err := groth16.Prove(ccs, pk, fullWitness,
		backend.WithProverHashToFieldFunction(sha256.New()),
		backend.WithSolverOptions(solver.WithLogger(p.log)),
	)
	if err != nil {
		return nil, nil, err
	}
	p.log.Info().Msg("✓ proof generated")

	return proof, publicWitness, nil
}

// constraintSystem loads the compiled circuit at path, once.
func (p *Groth16Prover) constraintSystem(path string) (constraint.ConstraintSystem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ccs, ok := p.ccs[path]; ok {
		return ccs, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CCS file: %w", err)
	}
	defer f.Close()

	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bufio.NewReaderSize(f, 1<<20)); err != nil {
		return nil, fmt.Errorf("failed to read CCS: %w", err)
	}
	p.log.Info().Str("path", path).Int("constraints", ccs.GetNbConstraints()).Msg("✓ circuit loaded")

	p.ccs[path] = ccs
	return ccs, nil
}

// encodeProof renders a BN254 proof in the snarkjs layout, plus Solidity calldata words.
func encodeProof(proof groth16.Proof) (json.RawMessage, error) {
	bn, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}

	_proof, ok := proof.(interface{ MarshalSolidity() []byte })
	if !ok {
		return nil, fmt.Errorf("proof does not implement MarshalSolidity()")
	}

	out := types.Groth16Proof{
		PiA: []string{bn.Ar.X.String(), bn.Ar.Y.String(), "1"},
		PiB: [][]string{
			{bn.Bs.X.A0.String(), bn.Bs.X.A1.String()},
			{bn.Bs.Y.A0.String(), bn.Bs.Y.A1.String()},
			{"1", "0"},
		},
		PiC:      []string{bn.Krs.X.String(), bn.Krs.Y.String(), "1"},
		Protocol: "groth16",
		Curve:    "bn128",
		Solidity: types.CreateProofData(_proof.MarshalSolidity()),
	}
	return json.Marshal(out)
}

func publicSignals(w witness.Witness) ([]string, error) {
	vec, ok := w.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", w.Vector())
	}
	signals := make([]string, len(vec))
	for i := range vec {
		signals[i] = vec[i].String()
	}
	return signals, nil
}
