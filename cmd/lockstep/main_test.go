package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gordian-engine/lockstep/internal/gtest"
	"github.com/gordian-engine/lockstep/ls/lsconfig"
	"github.com/gordian-engine/lockstep/ls/lsdebug"
	"github.com/gordian-engine/lockstep/ls/lsreport"
	"github.com/gordian-engine/lockstep/ls/lsround"
	"github.com/stretchr/testify/require"
)

const testSeed = "000102030405060708090a0b0c0d0e0f"

type cmdResult struct {
	Stdout, Stderr string
	Err            error
}

func execute(ctx context.Context, env map[string]string, args ...string) cmdResult {
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(lookup)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(ctx)
	return cmdResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func TestRun_worldSizeFlag(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"run", "--world-size", "2"}, &stdout, &stderr)

	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "number of processes must be 3")
	require.Empty(t, stdout.String())
}

func TestRun_worldSizeEnv(t *testing.T) {
	t.Parallel()

	res := execute(context.Background(), map[string]string{lsconfig.WorldSizeEnv: "4"}, "run")
	require.ErrorIs(t, res.Err, lsconfig.ErrWorldSize)

	// The flag takes precedence over the environment.
	res = execute(
		context.Background(), map[string]string{lsconfig.WorldSizeEnv: "4"},
		"run", "--world-size", "3", "-o", "1", "-t", "62", "--seed", testSeed,
	)
	require.NoError(t, res.Err)
}

func TestRun_negativeLength(t *testing.T) {
	t.Parallel()

	res := execute(context.Background(), nil, "run", "--length-one=-1")
	require.ErrorIs(t, res.Err, lsconfig.ErrNegativeLength)
}

func TestRun_emptyFirstStringNeverAccepted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), gtest.ScaleMs(200))
	defer cancel()

	res := execute(ctx, nil, "run", "-o", "0", "-t", "5")
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	require.Empty(t, res.Stdout)
}

func TestRun_seededWithReport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reportPath := filepath.Join(t.TempDir(), "report.yaml")
	res := execute(
		ctx, nil,
		"run", "-o", "1", "-t", "62", "-d",
		"--seed", testSeed,
		"--run-name", "quiet-otter",
		"--report-file", reportPath,
	)
	require.NoError(t, res.Err)
	require.True(t, strings.HasPrefix(res.Stdout, "passed strings are "), res.Stdout)

	// Debug logging was enabled.
	require.Contains(t, res.Stderr, "level=DEBUG")

	rep, err := lsreport.ReadReportFile(reportPath)
	require.NoError(t, err)
	require.Equal(t, "quiet-otter", rep.RunName)
	require.Len(t, rep.First, 1)
	require.Len(t, rep.Second, 62)
	require.True(t, lsround.Accepts(
		lsround.CandidateFromString(rep.First),
		lsround.CandidateFromString(rep.Second),
	))

	// The same seed reproduces the same run.
	again := execute(
		ctx, nil,
		"run", "-o", "1", "-t", "62", "--seed", testSeed,
	)
	require.NoError(t, again.Err)
	require.Equal(t, res.Stdout, again.Stdout)
}

func TestRun_configFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "lockstep.yaml")
	reportPath := filepath.Join(dir, "report.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
length_one: 1
length_two: 62
seed: `+testSeed+`
run_name: from-file
report_file: `+reportPath+`
`), 0o644))

	res := execute(context.Background(), nil, "run", "--config", cfgPath, "--run-name", "from-flag")
	require.NoError(t, res.Err)

	rep, err := lsreport.ReadReportFile(reportPath)
	require.NoError(t, err)
	require.Equal(t, "from-flag", rep.RunName)
	require.Len(t, rep.First, 1)
	require.Len(t, rep.Second, 62)
}

func TestRun_unknownConfigKey(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "lockstep.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("length_three: 4\n"), 0o644))

	res := execute(context.Background(), nil, "run", "--config", cfgPath)
	require.Error(t, res.Err)
}

func TestStatus_requiresAddress(t *testing.T) {
	t.Parallel()

	res := execute(context.Background(), nil, "status")
	require.Error(t, res.Err)
}

func TestStatus_tcp(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := lsdebug.NewHistory(8)
	h.ObserveVerdict(lsround.GeneratorB, lsround.FirstRound, lsround.VerdictStop)

	srv := lsdebug.NewHTTPServer(ctx, gtest.NewLogger(t), lsdebug.HTTPServerConfig{
		Listener: ln,
		History:  h,
	})
	t.Cleanup(srv.Wait)
	t.Cleanup(cancel)

	res := execute(ctx, nil, "status", "--http-addr", ln.Addr().String())
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "PARTICIPANT")

	res = execute(ctx, nil, "status", "--rounds", "--http-addr", ln.Addr().String())
	require.NoError(t, res.Err)
	require.Contains(t, res.Stdout, "generator-b")
	require.Contains(t, res.Stdout, "stop")
}

func TestGenerator_rejectsCoordinatorOrdinal(t *testing.T) {
	t.Parallel()

	res := execute(
		context.Background(), nil,
		"generator", "--ordinal", "0", "--coordinator", "/ip4/127.0.0.1/tcp/1",
	)
	require.ErrorContains(t, res.Err, "not a generator")
}

func TestMultiProcess(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := t.TempDir()
	addrFile := filepath.Join(dir, "coordinator.addr")
	reportPath := filepath.Join(dir, "report.yaml")

	coordDone := make(chan cmdResult, 1)
	go func() {
		coordDone <- execute(
			ctx, nil,
			"coordinator", "-o", "2", "-t", "40",
			"--addr-file", addrFile,
			"--report-file", reportPath,
		)
	}()

	var addr string
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(addrFile)
		if err != nil {
			return false
		}
		// Written with a trailing newline.
		if !bytes.HasSuffix(b, []byte("\n")) {
			return false
		}
		addr = strings.TrimSpace(string(b))
		return true
	}, 10*time.Second, 20*time.Millisecond)

	genDone := make(chan cmdResult, 2)
	for _, ord := range []string{"a", "b"} {
		go func() {
			genDone <- execute(
				ctx, nil,
				"generator", "--ordinal", ord, "--coordinator", addr,
				"-o", "2", "-t", "40", "--seed", testSeed,
			)
		}()
	}

	for range 2 {
		res := gtest.ReceiveOrTimeout(t, genDone, 20*time.Second)
		require.NoError(t, res.Err, res.Stderr)
	}

	res := gtest.ReceiveOrTimeout(t, coordDone, 10*time.Second)
	require.NoError(t, res.Err, res.Stderr)
	require.Contains(t, res.Stdout, "listening on ")
	require.Contains(t, res.Stdout, "passed strings are ")

	rep, err := lsreport.ReadReportFile(reportPath)
	require.NoError(t, err)
	require.True(t, lsround.Accepts(
		lsround.CandidateFromString(rep.First),
		lsround.CandidateFromString(rep.Second),
	))
}
