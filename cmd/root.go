// Copyright © 2018 Victor Tran
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cmdutil "github.com/tranvictor/abiscope/cmd/util"
	"github.com/tranvictor/abiscope/config"
	"github.com/tranvictor/abiscope/ui"
)

var (
	flagNetwork     string
	flagNode        string
	flagAPIKey      string
	flagSignatureDB string
	flagDSN         string
	flagABIFile     string
	flagConcurrency int
	flagDebug       bool
	flagNoColor     bool
	flagJSON        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "abiscope",
	Short: "Decode contract calls, event logs and abi values",
	Long: fmt.Sprintf(`abiscope turns raw EVM call data, transactions and event logs into
readable function calls and events.

It looks the interface of each contract up in this order:
	1. a local abi file passed with --abi, for the target contract only
	2. a contract snapshot database when %s is set
	3. the network's block explorer, following proxies to their
	implementation

Calls and logs of contracts without a known interface are decoded with
signatures from the bundled token standards, the local signature index
and the OpenChain signature database.

Settings are read from the environment and from .env in the working
directory:
	%s	network name, default mainnet
	%s	rpc url, overrides the network's nodes
	%s	block explorer api key
	%s	signature index directory, in memory when empty
	%s	cache directory, default ~/.abiscope
	%s	explorer requests per second
	%s	concurrent lookups
	%s	verbose logging

Flags override the environment.`,
		config.DSNVar,
		config.NetworkVar,
		config.NodeVar,
		config.APIKeyVar,
		config.SignatureDBVar,
		config.CacheDirVar,
		config.RPSVar,
		config.ConcurrencyVar,
		config.DebugVar,
	),
	SilenceUsage:       true,
	PersistentPreRunE:  openSession,
	PersistentPostRunE: closeSession,
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("network") {
		cfg.Network = flagNetwork
	}
	if flags.Changed("node") {
		cfg.Node = flagNode
	}
	if flags.Changed("api-key") {
		cfg.APIKey = flagAPIKey
	}
	if flags.Changed("sigdb") {
		cfg.SignatureDB = flagSignatureDB
	}
	if flags.Changed("dsn") {
		cfg.DSN = flagDSN
	}
	if flags.Changed("concurrency") {
		if flagConcurrency < 1 {
			return nil, fmt.Errorf("--concurrency must be positive")
		}
		cfg.Concurrency = flagConcurrency
	}
	if flags.Changed("debug") {
		cfg.Debug = flagDebug
	}
	cfg.ABIFile = flagABIFile
	return cfg, nil
}

// openSession wires the session every subcommand reads its collaborators
// from. Commands that take a contract address as their first argument get
// the --abi file bound to it.
func openSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	var u ui.UI = ui.NewTerminalUI()
	switch {
	case flagJSON:
		// results are printed by printJSON instead
		u = ui.NewTerminalUIWithWriter(io.Discard, false)
	case flagNoColor:
		u = ui.NewTerminalUIWithWriter(os.Stdout, false)
	}

	opts := []cmdutil.SessionOption{}
	if cfg.ABIFile != "" {
		if len(args) == 0 || !common.IsHexAddress(args[0]) {
			return fmt.Errorf("--abi needs a contract address as the first argument")
		}
		source, err := cmdutil.ReadABIFile(common.HexToAddress(args[0]), cfg.ABIFile)
		if err != nil {
			return err
		}
		opts = append(opts, cmdutil.WithSource(source))
	}

	s, err := cmdutil.NewSession(cmd.Context(), cfg, u, logger, opts...)
	if err != nil {
		return err
	}
	s.Logger.Debug("session started",
		zap.String("command", cmd.Name()),
		zap.String("network", s.Network.GetName()),
	)
	cmd.SetContext(cmdutil.WithSession(cmd.Context(), s))
	return nil
}

func closeSession(cmd *cobra.Command, args []string) error {
	s, ok := cmdutil.SessionFrom(cmd)
	if !ok {
		return nil
	}
	err := s.Close()
	s.Logger.Sync()
	return err
}

// printJSON writes v to stdout when --json is set and reports whether it
// did.
func printJSON(v any) bool {
	if !flagJSON {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return true
}

func session(cmd *cobra.Command) *cmdutil.Session {
	s, ok := cmdutil.SessionFrom(cmd)
	if !ok {
		panic("command run without a session")
	}
	return s
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagNetwork, "network", "k", "mainnet", "network name or alternative name, see abiscope network list")
	flags.StringVar(&flagNode, "node", "", "rpc url to read the chain from")
	flags.StringVar(&flagAPIKey, "api-key", "", "block explorer api key")
	flags.StringVar(&flagSignatureDB, "sigdb", "", "signature index directory")
	flags.StringVar(&flagDSN, "dsn", "", "postgres dsn of a contract snapshot database")
	flags.StringVar(&flagABIFile, "abi", "", "abi json file of the target contract")
	flags.IntVar(&flagConcurrency, "concurrency", 8, "concurrent contract and signature lookups")
	flags.BoolVar(&flagDebug, "debug", false, "verbose logging")
	flags.BoolVar(&flagNoColor, "no-color", false, "plain output")
	flags.BoolVar(&flagJSON, "json", false, "print results as json")
}
