package main

import (
	"context"
	"fmt"
	"io"

	"github.com/gordian-engine/lockstep/ls/lsdebug"
	"github.com/gordian-engine/lockstep/ls/lsengine"
	"github.com/gordian-engine/lockstep/ls/lsp2p/lsinmem"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all three participants in this process",
		Long: `Run the coordinator and both generators in this process,
connected by in-memory channels, until a pair of strings is accepted.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.validate(); err != nil {
				return err
			}
			return e.runInProcess(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (e *env) runInProcess(ctx context.Context, out io.Writer) error {
	info := e.runInfo()
	log := e.Log.With(logAttrs(info)...)

	n := lsinmem.NewNetwork()
	defer n.Close()

	h := lsdebug.NewHistory(historySize)

	roles := make([]lsengine.Role, 0, lsround.WorldSize)
	for p := range lsround.Participant(lsround.WorldSize) {
		rc := lsengine.RoleConfig{
			Participant: p,
			Observer:    h,
		}
		if p == lsround.Coordinator {
			rc.CoordinatorConn = n.Coordinator()
			rc.Reporter = e.reporter(out, info)
		} else {
			s, err := e.supply(p)
			if err != nil {
				return err
			}
			rc.GeneratorConn = n.Generator(p)
			rc.Supply = s
			rc.Length = e.Config.Length(p)
		}

		r, err := lsengine.NewRole(log.With("participant", p.String()), rc)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
		roles = append(roles, r)
	}

	stop, err := e.debugServers(ctx, statusSources(roles), h)
	if err != nil {
		return err
	}
	defer stop()

	log.Info("Starting in-process run", "length_one", e.Config.LengthOne, "length_two", e.Config.LengthTwo)

	// A failed role cancels the others, which would otherwise block forever
	// on a peer that is no longer sending.
	g, gCtx := errgroup.WithContext(ctx)
	for _, r := range roles {
		g.Go(func() error {
			if err := r.Run(gCtx); err != nil {
				return fmt.Errorf("%s: %w", r.Participant(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
