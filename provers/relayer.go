package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kysee/zk-knights/provers/cache"
	cfgtypes "github.com/kysee/zk-knights/provers/types"
	"github.com/kysee/zk-knights/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type closableCache interface {
	cfgtypes.ByteCache
	Close() error
}

// Relayer wires the key cache, the prover and the orchestrator from a Config
// and relays requests to them from HTTP or from files.
type Relayer struct {
	config   *cfgtypes.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	store    closableCache
	orch     *Orchestrator

	workerOnce sync.Once
	stopWorker context.CancelFunc
	workerDone chan struct{}
}

// NewRelayer creates a new Relayer with the given configuration.
// prover may be nil, in which case a Groth16Prover is used.
func NewRelayer(config *cfgtypes.Config, prover cfgtypes.Prover, log zerolog.Logger) (*Relayer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.RootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root dir: %w", err)
	}

	store, err := openCache(config, log)
	if err != nil {
		return nil, err
	}

	if prover == nil {
		prover = NewGroth16Prover(log)
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	keys := NewKeyCache(store, NewFetcher(config.ProvingKeyURL, config.HTTPTimeout), metrics, log)

	return &Relayer{
		config:   config,
		log:      log,
		registry: registry,
		store:    store,
		orch:     NewOrchestrator(keys, prover, config.ProvingKeyURL, config.CircuitPath, metrics, log),
	}, nil
}

// NewFetcher picks the fetcher for the scheme of url.
func NewFetcher(url string, timeout time.Duration) cfgtypes.Fetcher {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return NewHTTPFetcher(timeout)
	}
	return NewFileFetcher()
}

func openCache(config *cfgtypes.Config, log zerolog.Logger) (closableCache, error) {
	switch config.CacheMode {
	case cfgtypes.CacheModeMemory:
		return cache.NewMemoryStore(config.CacheName)
	default:
		return cache.OpenBadger(config.CacheDir, config.CacheName, log)
	}
}

func (r *Relayer) Orchestrator() *Orchestrator {
	return r.orch
}

// Close stops the orchestrator worker, if started, and closes the key cache.
func (r *Relayer) Close() error {
	r.stop()
	return r.store.Close()
}

// startWorker runs the orchestrator in the background, once per Relayer.
func (r *Relayer) startWorker() {
	r.workerOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		r.stopWorker = cancel
		r.workerDone = make(chan struct{})
		go func() {
			defer close(r.workerDone)
			if err := r.orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error().Err(err).Msg("orchestrator exited")
			}
		}()
	})
}

func (r *Relayer) stop() {
	if r.stopWorker == nil {
		return
	}
	r.stopWorker()
	<-r.workerDone
}

// Serve runs the orchestrator and the HTTP listener until ctx is done or the
// worker exits. The worker is stopped only after the listener has drained its handlers.
func (r *Relayer) Serve(ctx context.Context) error {
	listener := NewListener(r.config.ListenAddr, r.orch, r.registry, r.log)
	r.startWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Serve(gctx)
	})
	g.Go(func() error {
		select {
		case <-r.workerDone:
			return errStopped
		case <-gctx.Done():
			return nil
		}
	})

	err := g.Wait()
	r.stop()
	return err
}

// ProveFile proves the request stored at requestPath and writes the response to
// outputDir/proof-<puzzle id>.json. When pad is set, a short move history is
// extended with NoOp ticks first.
func (r *Relayer) ProveFile(ctx context.Context, requestPath, outputDir string, pad bool) (string, error) {
	blob, err := os.ReadFile(requestPath)
	if err != nil {
		return "", fmt.Errorf("failed to read request: %w", err)
	}
	var req types.RequestMessage
	if err := json.Unmarshal(blob, &req); err != nil {
		return "", fmt.Errorf("failed to decode request: %w", err)
	}
	if pad {
		if req.Moves, err = types.PadMoves(req.Moves); err != nil {
			return "", err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.startWorker()
	resp, err := r.orch.Prove(req)
	if err != nil {
		return "", err
	}
	if resp.Failed() {
		return "", errors.New(resp.Error)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("proof-%d.json", req.Puzzle.ID))
	jsonBlob, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal proof data: %w", err)
	}
	if err := os.WriteFile(outputPath, jsonBlob, 0644); err != nil {
		return "", fmt.Errorf("failed to write proof file: %w", err)
	}
	r.log.Info().Str("path", outputPath).Msg("✓ proof saved")
	return outputPath, nil
}
