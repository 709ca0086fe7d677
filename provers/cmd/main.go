package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	circuit "github.com/kysee/zk-knights/circuits"
	"github.com/kysee/zk-knights/provers"
	"github.com/kysee/zk-knights/provers/types"
	"github.com/spf13/cobra"
)

var (
	config = types.NewConfig()

	proveCmdRequestPath string
	proveCmdOutputDir   string
	proveCmdPad         bool

	setupCmdBuildDir     string
	setupCmdSolidityPath string
)

var rootCmd = &cobra.Command{
	Use:          "knights-prover",
	Short:        "Generates Groth16 proofs for knight puzzle solutions",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve proof requests over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := relayer.NewLogger(config)
		r, err := relayer.NewRelayer(config, nil, log)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return r.Serve(ctx)
	},
}

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Prove a single request read from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if proveCmdRequestPath == "" {
			return fmt.Errorf("--request is required")
		}
		log := relayer.NewLogger(config)
		r, err := relayer.NewRelayer(config, nil, log)
		if err != nil {
			return err
		}
		defer r.Close()

		path, err := r.ProveFile(cmd.Context(), proveCmdRequestPath, proveCmdOutputDir, proveCmdPad)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Compile the circuit, generate keys and export the Solidity verifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := relayer.NewLogger(config)
		_, _, vk, err := circuit.Setup(setupCmdBuildDir, log)
		if err != nil {
			return err
		}
		if setupCmdSolidityPath == "" {
			return nil
		}
		if err := circuit.ExportSolidity(vk, setupCmdSolidityPath); err != nil {
			return err
		}
		log.Info().Str("path", setupCmdSolidityPath).Msg("✅ Solidity verifier generated")
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&config.RootDir, "root", config.RootDir, "working directory")
	flags.StringVar(&config.ProvingKeyURL, "proving-key-url", config.ProvingKeyURL, "proving key location (http(s) url or file path); also the cache key")
	flags.StringVar(&config.CircuitPath, "circuit", config.CircuitPath, "compiled constraint system")
	flags.StringVar(&config.CacheDir, "cache-dir", config.CacheDir, "persistent key cache directory")
	flags.StringVar(&config.CacheName, "cache-name", config.CacheName, "key cache namespace, bump to invalidate")
	flags.StringVar(&config.CacheMode, "cache-mode", config.CacheMode, "badger or memory")
	flags.DurationVar(&config.HTTPTimeout, "http-timeout", config.HTTPTimeout, "proving key download timeout")
	flags.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	flags.StringVar(&config.LogFile, "log-file", config.LogFile, "rotate logs into this file as well")

	serveCmd.Flags().StringVar(&config.ListenAddr, "listen", config.ListenAddr, "HTTP listen address")

	proveCmd.Flags().StringVar(&proveCmdRequestPath, "request", "", "request message JSON file")
	proveCmd.Flags().StringVar(&proveCmdOutputDir, "output", filepath.Join(config.RootDir, "output"), "directory for proof files")
	proveCmd.Flags().BoolVar(&proveCmdPad, "pad", false, "pad a short move history with NoOp ticks")

	setupCmd.Flags().StringVar(&setupCmdBuildDir, "build", filepath.Join(config.RootDir, ".build"), "directory for .ccs/.pk/.vk")
	setupCmd.Flags().StringVar(&setupCmdSolidityPath, "solidity", "", "write a Solidity verifier here")

	rootCmd.AddCommand(serveCmd, proveCmd, setupCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
