// Command composer-solve is a demonstration Installer shell: it reads a
// scenario file describing a Pool, a Request, and Policy options, runs the
// core solver, and prints the resulting transaction or problem tree. Real
// callers wire their own repository loading, downloading, and lock-file
// persistence around the composer package; this binary exists only to
// exercise the core end to end.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	composer "github.com/stloyd/composer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "composer-solve <scenario-file>",
		Short: "Solve a package scenario file and print the resulting transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0], verbose, dryRun)
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "emit solver trace logging")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "solve and print the transaction without side effects (always true: this binary never executes operations)")
	return cmd
}

func run(path string, verbose, _ bool) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("composer-solve: reading %s: %w", path, err)
	}

	var sc scenario
	decodeHook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&sc, viper.DecodeHook(decodeHook)); err != nil {
		return fmt.Errorf("composer-solve: decoding %s: %w", path, err)
	}

	pool, req, err := sc.build()
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	policy := composer.NewDefaultPolicy(sc.Policy)
	s := composer.New(pool, req, policy, logger)

	tx, err := s.Solve(context.Background())
	if err != nil {
		if ue, ok := composer.AsUnsatisfiable(err); ok {
			fmt.Fprintln(os.Stdout, ue.Problems.String())
			os.Exit(2)
		}
		return err
	}

	for _, op := range tx.Operations {
		fmt.Fprintln(os.Stdout, op.String())
	}
	fmt.Fprintf(os.Stdout, "# %d attempts, %d backtracks\n", tx.Stats.Attempts, tx.Stats.Backtracks)
	return nil
}
