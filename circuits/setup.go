package circuit

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/solidity"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"
)

// Artifact names written by Setup.
const (
	CCSFile = "KnightsCircuit.ccs"
	PKFile  = "KnightsCircuit.pk"
	VKFile  = "KnightsCircuit.vk"
)

// Setup compiles KnightsCircuit, generates Groth16 keys and writes all three into buildDir.
func Setup(buildDir string, log zerolog.Logger) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return nil, nil, nil, err
	}

	log.Info().Msg("🕧 compiling KnightsCircuit...")
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &KnightsCircuit{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to compile circuit: %w", err)
	}
	if err := writeArtifact(filepath.Join(buildDir, CCSFile), ccs); err != nil {
		return nil, nil, nil, err
	}
	log.Info().
		Int("constraints", ccs.GetNbConstraints()).
		Int("public", ccs.GetNbPublicVariables()).
		Msg("✅ compile complete")

	log.Info().Msg("🕧 generating proving and verifying keys...")
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("groth16 setup failed: %w", err)
	}
	if err := writeArtifact(filepath.Join(buildDir, PKFile), pk); err != nil {
		return nil, nil, nil, err
	}
	if err := writeArtifact(filepath.Join(buildDir, VKFile), vk); err != nil {
		return nil, nil, nil, err
	}
	log.Info().Str("dir", buildDir).Msg("✅ setup complete")

	return ccs, pk, vk, nil
}

// ReadVerifyingKey loads a BN254 verifying key written by Setup.
func ReadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("failed to read verifying key: %w", err)
	}
	return vk, nil
}

// ExportSolidity writes a Solidity verifier for vk to path.
// The verifier hashes commitments with sha256, matching the prover.
func ExportSolidity(vk groth16.VerifyingKey, path string) error {
	var buf bytes.Buffer
	if err := vk.ExportSolidity(&buf, solidity.WithHashToFieldFunction(sha256.New())); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeArtifact(path string, w io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
