package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	circuit "github.com/kysee/zk-knights/circuits"
	cfgtypes "github.com/kysee/zk-knights/provers/types"
	"github.com/kysee/zk-knights/types"
	"github.com/rs/zerolog"
)

// State is the lifecycle stage of the request currently held by an Orchestrator.
type State int32

const (
	StateIdle State = iota
	StateNormalizing
	StateFetchingKey
	StateProving
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNormalizing:
		return "normalizing"
	case StateFetchingKey:
		return "fetching_key"
	case StateProving:
		return "proving"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	errStopped = errors.New("orchestrator stopped")
	errRunning = errors.New("orchestrator already started")
)

// job pairs a request with the channel its single response goes to.
type job struct {
	req   types.RequestMessage
	reply chan types.ResponseMessage
}

// Orchestrator turns request messages into response messages on a single worker.
// Callers talk to it only through Submit and the reply channel it returns;
// at most one request is in flight.
type Orchestrator struct {
	keys          *KeyCache
	prover        cfgtypes.Prover
	provingKeyURL string
	circuitRef    string
	metrics       *Metrics
	log           zerolog.Logger

	requests chan job
	done     chan struct{}

	started atomic.Bool
	busy    atomic.Bool
	state   atomic.Int32
}

func NewOrchestrator(keys *KeyCache, prover cfgtypes.Prover, provingKeyURL, circuitRef string, metrics *Metrics, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		keys:          keys,
		prover:        prover,
		provingKeyURL: provingKeyURL,
		circuitRef:    circuitRef,
		metrics:       metrics,
		log:           log.With().Str("component", "orchestrator").Logger(),
		requests:      make(chan job, 1),
		done:          make(chan struct{}),
	}
}

// Submit hands a request to the worker and returns the channel that receives its
// response. It returns ErrBusy while another request is being handled.
func (o *Orchestrator) Submit(req types.RequestMessage) (<-chan types.ResponseMessage, error) {
	select {
	case <-o.done:
		return nil, errStopped
	default:
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	reply := make(chan types.ResponseMessage, 1)
	o.requests <- job{req: req, reply: reply}
	return reply, nil
}

func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Prove submits req and waits for its response. A running proof is never abandoned;
// the wait ends early only when the worker itself stops.
func (o *Orchestrator) Prove(req types.RequestMessage) (types.ResponseMessage, error) {
	reply, err := o.Submit(req)
	if err != nil {
		return types.ResponseMessage{}, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-o.done:
		select {
		case resp := <-reply:
			return resp, nil
		default:
			return types.ResponseMessage{}, errStopped
		}
	}
}

// Run processes requests in arrival order until ctx is done.
// An Orchestrator runs at most once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return errRunning
	}
	defer close(o.done)
	o.log.Info().Str("circuit", o.circuitRef).Str("provingKey", o.provingKeyURL).Msg("orchestrator started")

	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("orchestrator stopped")
			return ctx.Err()
		case j := <-o.requests:
			resp := o.handle(ctx, j.req)
			// free the slot before replying so the caller can submit again at once
			o.busy.Store(false)
			j.reply <- resp
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, req types.RequestMessage) (resp types.ResponseMessage) {
	start := time.Now()
	log := o.log.With().Str("request", uuid.NewString()).Logger()
	o.metrics.setInFlight(true)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("proof request panicked")
			resp = types.NewErrorResponse(fmt.Errorf("proof request panicked: %v", r))
		}
		if resp.Failed() {
			o.setState(StateFailed)
		} else {
			o.setState(StateSucceeded)
		}
		o.metrics.observeRequest(start, resp.Failed())
		o.metrics.setInFlight(false)
		log.Info().Str("state", o.State().String()).Dur("elapsed", time.Since(start)).Msg("proof request finished")
	}()

	artifact, err := o.process(ctx, log, req)
	if err != nil {
		log.Warn().Err(err).Msg("proof request failed")
		return types.NewErrorResponse(err)
	}
	return types.NewSuccessResponse(artifact)
}

func (o *Orchestrator) process(ctx context.Context, log zerolog.Logger, req types.RequestMessage) (*types.ProofArtifact, error) {
	o.setState(StateNormalizing)
	input, err := circuit.Normalize(req.Moves, req.Puzzle, req.TickCount)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("puzzle", input.PuzzleID).Str("ticks", input.TickCount).Msg("input normalized")

	o.setState(StateFetchingKey)
	provingKey, err := o.keys.ProvingKeyBytes(ctx, o.provingKeyURL)
	if err != nil {
		return nil, err
	}

	o.setState(StateProving)
	artifact, err := o.prover.Prove(ctx, input, o.circuitRef, provingKey)
	if err != nil {
		return nil, wrapProvingError(err)
	}
	if artifact == nil {
		return nil, fmt.Errorf("%w: prover returned no artifact", ErrProving)
	}
	return artifact, nil
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}
