package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/gordian-engine/lockstep/internal/glog"
	"github.com/gordian-engine/lockstep/ls/lsdebug"
	"github.com/gordian-engine/lockstep/ls/lsreport"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/gordian-engine/lockstep/ls/lssupply"
)

// historySize bounds the debug server's verdict history.
const historySize = 1024

func (e *env) runInfo() lsreport.RunInfo {
	info := lsreport.NewRunInfo()
	if e.Config.RunName != "" {
		info.Name = e.Config.RunName
	}
	return info
}

// reporter prints the accepted pair to out,
// and also writes a report file when one is configured.
func (e *env) reporter(out io.Writer, info lsreport.RunInfo) lsreport.Reporter {
	w := lsreport.WriterReporter{W: out}
	if e.Config.ReportFile == "" {
		return w
	}
	return lsreport.MultiReporter{
		w,
		lsreport.YAMLFileReporter{Path: e.Config.ReportFile, Info: info},
	}
}

// supply returns a seeded supply for p when a seed is configured,
// otherwise one keyed from the operating system.
func (e *env) supply(p lsround.Participant) (lssupply.Supply, error) {
	seed, err := e.Config.SeedBytes()
	if err != nil {
		return nil, err
	}

	if seed == nil {
		s, err := lssupply.NewRandomSupply()
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	e.Log.Debug("Using seeded supply", "participant", p, "seed", glog.Hex(seed))
	s, err := lssupply.NewSeededSupply(seed, p)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// debugServers runs the debug HTTP server on each configured listener.
// The returned stop function shuts the servers down and waits for them.
func (e *env) debugServers(
	ctx context.Context, roles []lsdebug.StatusSource, h *lsdebug.History,
) (func(), error) {
	var lns []net.Listener
	if e.Config.HTTPAddr != "" {
		ln, err := net.Listen("tcp", e.Config.HTTPAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", e.Config.HTTPAddr, err)
		}
		lns = append(lns, ln)
	}
	if e.Config.HTTPUnix != "" {
		// A stale socket from a previous run would make the listen fail.
		if err := os.Remove(e.Config.HTTPUnix); err != nil && !os.IsNotExist(err) {
			closeAll(lns)
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
		ln, err := net.Listen("unix", e.Config.HTTPUnix)
		if err != nil {
			closeAll(lns)
			return nil, fmt.Errorf("failed to listen on %s: %w", e.Config.HTTPUnix, err)
		}
		lns = append(lns, ln)
	}

	if len(lns) == 0 {
		return func() {}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	srvs := make([]*lsdebug.HTTPServer, len(lns))
	for i, ln := range lns {
		e.Log.Info("Debug HTTP server listening", "addr", ln.Addr().String())
		srvs[i] = lsdebug.NewHTTPServer(ctx, e.Log.With("sys", "http"), lsdebug.HTTPServerConfig{
			Listener: ln,
			Roles:    roles,
			History:  h,
		})
	}

	return func() {
		cancel()
		for _, s := range srvs {
			s.Wait()
		}
	}, nil
}

func closeAll(lns []net.Listener) {
	for _, ln := range lns {
		_ = ln.Close()
	}
}

// statusSources adapts a slice of roles for the debug server.
func statusSources[T lsdebug.StatusSource](roles []T) []lsdebug.StatusSource {
	out := make([]lsdebug.StatusSource, len(roles))
	for i, r := range roles {
		out[i] = r
	}
	return out
}

// logAttrs returns the standard attributes identifying a run.
func logAttrs(info lsreport.RunInfo) []any {
	return []any{"run_id", info.ID.String(), "run_name", info.Name}
}
