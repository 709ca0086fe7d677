package types

import "encoding/json"

// RequestMessage is what a caller hands to the proof orchestrator.
type RequestMessage struct {
	Moves     MoveHistory `json:"moves"`
	Puzzle    *Puzzle     `json:"puzzle"`
	TickCount int         `json:"tick_count"`
}

// ResponseMessage carries either a proof artifact or an error, never both.
type ResponseMessage struct {
	Proof         json.RawMessage `json:"proof,omitempty"`
	PublicSignals json.RawMessage `json:"publicSignals,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// ProofArtifact is the opaque output of the proving routine.
type ProofArtifact struct {
	Proof         json.RawMessage
	PublicSignals json.RawMessage
}

func NewSuccessResponse(artifact *ProofArtifact) ResponseMessage {
	return ResponseMessage{
		Proof:         artifact.Proof,
		PublicSignals: artifact.PublicSignals,
	}
}

func NewErrorResponse(err error) ResponseMessage {
	return ResponseMessage{Error: err.Error()}
}

func (r ResponseMessage) Failed() bool {
	return r.Error != ""
}
