package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordian-engine/lockstep/ls/lsdebug"
	"github.com/gordian-engine/lockstep/ls/lsengine"
	"github.com/gordian-engine/lockstep/ls/lsp2p/lslibp2p"
	"github.com/gordian-engine/lockstep/ls/lsround"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/spf13/cobra"
)

func newGeneratorCommand(e *env) *cobra.Command {
	var (
		ordinal     string
		coordinator string
		listen      []string
	)

	cmd := &cobra.Command{
		Use:   "generator",
		Short: "Run one generator as its own process",
		Long: `Run generator a (ordinal 1) or generator b (ordinal 2) on a libp2p host,
connecting to the coordinator at the given multiaddr.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("coordinator") {
				e.Config.Coordinator = coordinator
			}
			if cmd.Flags().Changed("listen") {
				e.Config.ListenAddrs = listen
			}
			if err := e.validate(); err != nil {
				return err
			}

			p, err := lsround.ParseParticipant(ordinal)
			if err != nil {
				return err
			}
			if !p.IsGenerator() {
				return fmt.Errorf("ordinal %q is not a generator", ordinal)
			}
			return e.runGenerator(cmd.Context(), p)
		},
	}

	cmd.Flags().StringVar(&ordinal, "ordinal", "", "generator ordinal: 1 (a) or 2 (b)")
	cmd.Flags().StringVar(&coordinator, "coordinator", "", "coordinator multiaddr, including /p2p/<peer id>")
	cmd.Flags().StringSliceVar(&listen, "listen", nil, "multiaddrs to listen on (default "+lslibp2p.DefaultListenAddr+")")
	_ = cmd.MarkFlagRequired("ordinal")

	return cmd
}

func (e *env) runGenerator(ctx context.Context, p lsround.Participant) error {
	if e.Config.Coordinator == "" {
		return errors.New("coordinator address required (--coordinator or config)")
	}
	addr, err := ma.NewMultiaddr(e.Config.Coordinator)
	if err != nil {
		return fmt.Errorf("invalid coordinator address: %w", err)
	}

	log := e.Log.With("participant", p.String())
	if e.Config.RunName != "" {
		log = log.With("run_name", e.Config.RunName)
	}

	s, err := e.supply(p)
	if err != nil {
		return err
	}

	conn, err := lslibp2p.DialCoordinator(ctx, log.With("sys", "p2p"), lslibp2p.GeneratorConfig{
		HostConfig: lslibp2p.HostConfig{
			ListenAddrs: e.Config.ListenAddrs,
			RunName:     e.Config.RunName,
		},
		Participant: p,
		Coordinator: addr,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug("Error closing connection", "err", err)
		}
	}()

	h := lsdebug.NewHistory(historySize)
	role, err := lsengine.NewRole(log, lsengine.RoleConfig{
		Participant:   p,
		GeneratorConn: conn,
		Supply:        s,
		Length:        e.Config.Length(p),
		Observer:      h,
	})
	if err != nil {
		return err
	}

	stop, err := e.debugServers(ctx, statusSources([]lsengine.Role{role}), h)
	if err != nil {
		return err
	}
	defer stop()

	return role.Run(ctx)
}
