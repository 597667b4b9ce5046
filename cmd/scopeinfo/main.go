package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/scopeinfo"
	"github.com/wippyai/scope-layout/snapshot"
)

type options struct {
	file    string
	db      string
	verbose bool
	wasm    bool
	refs    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(ctx).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "scopeinfo",
		Short:         "Build and inspect scope descriptor layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.verbose)
		},
	}
	root.SetContext(ctx)
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newLayoutCmd(opts), newInspectCmd(opts), newSnapshotCmd(opts))
	return root
}

func setupLogging(verbose bool) error {
	if !verbose {
		return nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	heap.SetLogger(l)
	scopeinfo.SetLogger(l)
	snapshot.SetLogger(l)
	return nil
}

// buildFile allocates every scope of the description at path on a new heap.
func buildFile(ctx context.Context, path string, wasm bool) (*heap.Heap, []Built, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cfg := heap.DefaultConfig()
	if wasm {
		cfg.Backing = heap.BackingWasm
	}
	h, err := heap.NewContext(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	built, err := f.Build(h)
	if err != nil {
		_ = h.Close(ctx)
		return nil, nil, err
	}
	return h, built, nil
}

func newLayoutCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the section layout of each described scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, built, err := buildFile(ctx, opts.file, opts.wasm)
			if err != nil {
				return err
			}
			defer h.Close(ctx)

			out := cmd.OutOrStdout()
			p := printer{w: out, styled: isTerminal(out)}
			for _, b := range built {
				p.scope(b.Name, b.Scope)
				if opts.refs {
					p.references(b.Scope)
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "scope.yaml", "scope description file, - for stdin")
	cmd.Flags().BoolVar(&opts.wasm, "wasm", false, "allocate in wazero linear memory")
	cmd.Flags().BoolVar(&opts.refs, "refs", false, "list reference slots")
	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Browse described scopes interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspector(cmd.Context(), opts.file, opts.wasm)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "scope.yaml", "scope description file")
	cmd.Flags().BoolVar(&opts.wasm, "wasm", false, "allocate in wazero linear memory")
	return cmd
}

func newSnapshotCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore heap images",
	}
	cmd.PersistentFlags().StringVar(&opts.db, "db", "scopeinfo.db", "snapshot database path")

	withStore := func(fn func(cmd *cobra.Command, s *snapshot.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := snapshot.Open(opts.db)
			if err != nil {
				return err
			}
			defer s.Close()
			return fn(cmd, s, args)
		}
	}

	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Build a description and store its heap",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *snapshot.Store, args []string) error {
			ctx := cmd.Context()
			h, built, err := buildFile(ctx, opts.file, false)
			if err != nil {
				return err
			}
			defer h.Close(ctx)

			scopes := make([]*scopeinfo.ScopeInfo, len(built))
			for i, b := range built {
				scopes[i] = b.Scope
			}
			if err := s.Save(ctx, args[0], h, scopes...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes, %d scopes)\n", args[0], h.Top(), len(scopes))
			return nil
		}),
	}
	save.Flags().StringVarP(&opts.file, "file", "f", "scope.yaml", "scope description file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, s *snapshot.Store, args []string) error {
			infos, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, info := range infos {
				fmt.Fprintf(out, "%-20s %-8s %8d bytes %3d scopes  %s\n",
					info.Name, info.Format, info.Size, info.Scopes, info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show NAME",
		Short: "Restore a snapshot and print its scopes",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *snapshot.Store, args []string) error {
			h, scopes, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer h.Close(cmd.Context())

			out := cmd.OutOrStdout()
			p := printer{w: out, styled: isTerminal(out)}
			for i, si := range scopes {
				p.scope(fmt.Sprintf("%s[%d]", args[0], i), si)
			}
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *snapshot.Store, args []string) error {
			return s.Delete(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(save, list, show, del)
	return cmd
}
