package types

import (
	"context"

	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/kysee/zk-knights/types"
)

// Fetcher retrieves a raw artifact by its location.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ByteCache is a persistent key/value store for large immutable blobs.
// Put stores its own copy of value before returning and Get returns a slice
// the caller owns, so neither side may alias the other's bytes.
type ByteCache interface {
	// Get returns the cached bytes and whether the key was present.
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Prover is the external proving routine.
// circuitRef locates the compiled circuit program; provingKey holds the raw key bytes.
type Prover interface {
	Prove(ctx context.Context, input *circuit.CircuitInput, circuitRef string, provingKey []byte) (*types.ProofArtifact, error)
}
