// Command simulate replays scripted scenarios against an in-memory registry
// and reports whether their final state matches the expected one.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tcrlabs/curate/logging"
)

var errScenariosFailed = errors.New("scenarios failed")

type options struct {
	verbose  bool
	format   string
	parallel int
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>...",
		Short: "Replay registry scenarios",
		Long: `Replay registry scenarios described in YAML files.

Each scenario runs against its own registry, arbitrator and bank.
The command fails when any scenario fails.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.format)
			}
			if opts.parallel < 1 {
				return fmt.Errorf("invalid parallelism %d", opts.parallel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log registry activity to stderr")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|json)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "number of scenarios run concurrently")
	return cmd
}

func runScenarios(ctx context.Context, opts *options, paths []string, out io.Writer) error {
	logger := zap.NewNop()
	if opts.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync()
	}
	ctx = logging.NewContext(ctx, logger)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}

	results := make([]ScenarioResult, len(scenarios))
	var eg errgroup.Group
	eg.SetLimit(opts.parallel)
	for i, s := range scenarios {
		i, s := i, s
		eg.Go(func() error {
			results[i] = s.Run(ctx)
			return nil
		})
	}
	_ = eg.Wait()

	if err := report(out, opts.format, results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Pass {
			return errScenariosFailed
		}
	}
	return nil
}

func report(out io.Writer, format string, results []ScenarioResult) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
			fmt.Fprintf(out, "PASS %s\n", r.Name)
			continue
		}
		fmt.Fprintf(out, "FAIL %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(out, "     %s\n", e)
		}
	}
	fmt.Fprintf(out, "%d/%d scenarios passed\n", passed, len(results))
	return nil
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
