package types

import (
	bn254_fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Groth16Proof is the snarkjs-compatible proof layout returned to callers,
// extended with the words a Solidity verifier expects.
type Groth16Proof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`

	Solidity *ProofData `json:"solidity,omitempty"`
}

type ProofData struct {
	Proof         []hexutil.Bytes `json:"proof"`
	Commitments   []hexutil.Bytes `json:"commitments,omitempty"`
	CommitmentPok []hexutil.Bytes `json:"commitmentPok,omitempty"`
}

// CreateProofData splits a gnark Solidity-encoded proof into 32-byte words.
// Commitment words are only present when the circuit uses commitments.
func CreateProofData(proofSolidity []byte) *ProofData {
	// A, B, C
	proof := make([]hexutil.Bytes, 8)
	for i := 0; i < len(proof); i++ {
		proof[i] = proofSolidity[i*bn254_fr.Bytes : (i+1)*bn254_fr.Bytes]
	}

	data := &ProofData{Proof: proof}

	startIdx0 := 8*bn254_fr.Bytes + 4
	if len(proofSolidity) < startIdx0+4*bn254_fr.Bytes {
		return data
	}

	commitments := make([]hexutil.Bytes, 4)
	for i := 0; i < len(commitments); i++ {
		startIdx := startIdx0 + (i * bn254_fr.Bytes)
		commitments[i] = proofSolidity[startIdx : startIdx+bn254_fr.Bytes]
	}
	data.Commitments = commitments[0:2]
	data.CommitmentPok = commitments[2:4]
	return data
}
