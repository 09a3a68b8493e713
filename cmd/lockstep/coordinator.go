package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gordian-engine/lockstep/ls/lsdebug"
	"github.com/gordian-engine/lockstep/ls/lsengine"
	"github.com/gordian-engine/lockstep/ls/lsp2p/lslibp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/spf13/cobra"
)

// drainTimeout bounds how long the coordinator waits for generators
// to hang up after the final verdict.
const drainTimeout = 5 * time.Second

func newCoordinatorCommand(e *env) *cobra.Command {
	var (
		listen   []string
		addrFile string
	)

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Run the coordinator as its own process",
		Long: `Run the coordinator on a libp2p host.
The coordinator prints its dialable addresses, waits for both generators
to connect, and then runs rounds until a pair is accepted.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				e.Config.ListenAddrs = listen
			}
			if err := e.validate(); err != nil {
				return err
			}
			return e.runCoordinator(cmd.Context(), cmd.OutOrStdout(), addrFile)
		},
	}

	cmd.Flags().StringSliceVar(&listen, "listen", nil, "multiaddrs to listen on (default "+lslibp2p.DefaultListenAddr+")")
	cmd.Flags().StringVar(&addrFile, "addr-file", "", "write the first dialable address to this file once listening")

	return cmd
}

func (e *env) runCoordinator(ctx context.Context, out io.Writer, addrFile string) error {
	info := e.runInfo()
	log := e.Log.With(logAttrs(info)...)

	c, err := lslibp2p.NewCoordinator(log.With("sys", "p2p"), lslibp2p.HostConfig{
		ListenAddrs: e.Config.ListenAddrs,
		RunName:     info.Name,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Debug("Error closing libp2p host", "err", err)
		}
	}()

	addrs, err := c.Addrs()
	if err != nil {
		return fmt.Errorf("failed to determine listen addresses: %w", err)
	}
	for _, a := range addrs {
		if _, err := fmt.Fprintf(out, "listening on %s\n", a); err != nil {
			return err
		}
	}
	if addrFile != "" && len(addrs) > 0 {
		if err := os.WriteFile(addrFile, []byte(addrs[0].String()+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write address file: %w", err)
		}
	}

	log.Info("Waiting for generators", "addrs", strings.Join(multiaddrStrings(addrs), ","))
	conn, err := c.AwaitGenerators(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug("Error closing generator streams", "err", err)
		}
	}()

	h := lsdebug.NewHistory(historySize)
	role, err := lsengine.NewRole(log.With("participant", lsround.Coordinator.String()), lsengine.RoleConfig{
		Participant:     lsround.Coordinator,
		CoordinatorConn: conn,
		Reporter:        e.reporter(out, info),
		Observer:        h,
	})
	if err != nil {
		return err
	}

	stop, err := e.debugServers(ctx, statusSources([]lsengine.Role{role}), h)
	if err != nil {
		return err
	}
	defer stop()

	if err := role.Run(ctx); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := conn.Drain(drainCtx); err != nil {
		log.Warn("Generators did not disconnect after the final verdict", "err", err)
	}
	return nil
}

func multiaddrStrings[T fmt.Stringer](addrs []T) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
