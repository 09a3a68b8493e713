package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/gordian-engine/lockstep/ls/lsdebug"
	"github.com/spf13/cobra"
)

func newStatusCommand(e *env) *cobra.Command {
	var rounds bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running participant's debug HTTP server",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			var c *lsdebug.Client
			switch {
			case e.Config.HTTPUnix != "":
				c = lsdebug.NewUnixClient(e.Config.HTTPUnix)
			case e.Config.HTTPAddr != "":
				c = lsdebug.NewTCPClient(e.Config.HTTPAddr)
			default:
				return errors.New("one of --http-addr or --http-unix is required")
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if rounds {
				entries, err := c.Rounds(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "PARTICIPANT\tROUND\tVERDICT")
				for _, r := range entries {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Participant, r.Round, r.Verdict)
				}
				return tw.Flush()
			}

			entries, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "PARTICIPANT\tSTATE\tROUND")
			for _, s := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Participant, s.State, s.Round)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&rounds, "rounds", false, "list observed verdicts instead of current states")

	return cmd
}
