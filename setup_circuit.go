package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark/logger"
	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/rs/zerolog"
)

const rootDir = "."

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	logger.Disable()

	_, _, vk, err := circuit.Setup(filepath.Join(rootDir, ".build"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}

	path := filepath.Join(rootDir, "verifiers/knights/contracts/KnightsVerifier.sol")
	if err := circuit.ExportSolidity(vk, path); err != nil {
		log.Fatal().Err(err).Msg("failed to export solidity verifier")
	}
	log.Info().Str("path", path).Msg("✅ Solidity verifier generated")
}
