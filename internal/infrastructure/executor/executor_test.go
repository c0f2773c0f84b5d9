package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/domain"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"go.uber.org/zap/zaptest"
)

type call struct {
	dir  string
	bin  string
	args []string
}

func newTestExecutor(t *testing.T, run runFunc) (*Executor, *[]call) {
	t.Helper()
	calls := &[]call{}
	e := NewExecutor(config.ExecutorConfig{
		CollectorBin: "aro-collector",
		AnalyzerBin:  "aro-analyzer",
		WorkDir:      "/var/lib/tracecmd",
		Timeout:      time.Second,
	}, logger.Wrap(zaptest.NewLogger(t)))
	e.run = func(ctx context.Context, dir, bin string, args []string) (*CommandResult, error) {
		*calls = append(*calls, call{dir: dir, bin: bin, args: args})
		return run(ctx, dir, bin, args)
	}
	return e, calls
}

func ok(ctx context.Context, dir, bin string, args []string) (*CommandResult, error) {
	return &CommandResult{Success: true}, nil
}

func TestCollectorArgs(t *testing.T) {
	args := CollectorArgs(&domain.CommandDescriptor{
		StartCollector: "vpn_android",
		Output:         "/traces/s1",
		Video:          "hd",
		Secure:         true,
		CertInstall:    true,
		Uplink:         20,
		Downlink:       1500,
		DeviceID:       "emulator-5554",
	})
	assert.Equal(t, []string{
		"--kind", "vpn_android", "--output", "/traces/s1",
		"--video", "hd", "--secure", "--certinstall",
		"--uplink", "20", "--downlink", "1500",
		"--orientation", "portrait", "--deviceid", "emulator-5554",
	}, args)

	minimal := CollectorArgs(&domain.CommandDescriptor{StartCollector: "ios", Output: "/t", Orientation: "landscape"})
	assert.Equal(t, []string{"--kind", "ios", "--output", "/t", "--orientation", "landscape"}, minimal)
}

func TestAnalyzerArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--trace", "/traces/s1", "--format", "json", "--output", "/r.json"},
		AnalyzerArgs(&domain.CommandDescriptor{Analyze: "/traces/s1", Output: "/r.json"}))
	assert.Equal(t,
		[]string{"--trace", "/t", "--format", "html", "--output", "/r.html", "--video", "yes"},
		AnalyzerArgs(&domain.CommandDescriptor{Analyze: "/t", Output: "/r.html", Format: "html", Video: "yes"}))
}

func TestExecute_SelectsBinary(t *testing.T) {
	e, calls := newTestExecutor(t, ok)

	require.NoError(t, e.Execute(context.Background(), &domain.CommandDescriptor{StartCollector: "ios", Output: "/t"}))
	require.NoError(t, e.Execute(context.Background(), &domain.CommandDescriptor{Analyze: "/t", Output: "/r"}))

	require.Len(t, *calls, 2)
	assert.Equal(t, "aro-collector", (*calls)[0].bin)
	assert.Equal(t, "aro-analyzer", (*calls)[1].bin)
	assert.Equal(t, "/var/lib/tracecmd", (*calls)[0].dir)
}

func TestExecute_NoAction(t *testing.T) {
	e, calls := newTestExecutor(t, ok)
	assert.ErrorIs(t, e.Execute(context.Background(), &domain.CommandDescriptor{}), ErrUnknownAction)
	assert.Empty(t, *calls)
}

func TestExecute_MissingBinary(t *testing.T) {
	e, _ := newTestExecutor(t, ok)
	e.analyzerBin = ""
	assert.ErrorIs(t, e.Execute(context.Background(), &domain.CommandDescriptor{Analyze: "/t", Output: "/r"}), ErrBinaryMissing)
}

func TestExecute_ExitFailureCarriesStderrTail(t *testing.T) {
	e, _ := newTestExecutor(t, func(ctx context.Context, dir, bin string, args []string) (*CommandResult, error) {
		return &CommandResult{ExitCode: 3, Output: "Exception in thread main: GC overhead limit exceeded\n"}, errors.New("exit status 3")
	})

	err := e.Execute(context.Background(), &domain.CommandDescriptor{Analyze: "/t", Output: "/r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aro-analyzer exited with code 3")
	assert.True(t, strings.HasSuffix(err.Error(), "GC overhead limit exceeded"))
}

func TestExecute_Interrupted(t *testing.T) {
	e, _ := newTestExecutor(t, func(ctx context.Context, dir, bin string, args []string) (*CommandResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Execute(ctx, &domain.CommandDescriptor{StartCollector: "ios", Output: "/t"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_Timeout(t *testing.T) {
	e, _ := newTestExecutor(t, func(ctx context.Context, dir, bin string, args []string) (*CommandResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e.timeout = 10 * time.Millisecond

	err := e.Execute(context.Background(), &domain.CommandDescriptor{StartCollector: "ios", Output: "/t"})
	assert.ErrorIs(t, err, ErrCommandTimeout)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("  abc \n", 10))
	assert.Equal(t, "cde", tail("abcde", 3))
}

func TestValidateBinaryExistence(t *testing.T) {
	e, _ := newTestExecutor(t, ok)
	e.lookPath = func(file string) (string, error) {
		if file == "aro-collector" {
			return "/usr/local/bin/aro-collector", nil
		}
		return "", errors.New("not found")
	}

	err := e.ValidateBinaryExistence()
	assert.ErrorIs(t, err, ErrBinaryNotFound)
	assert.Contains(t, err.Error(), "aro-analyzer")
	assert.NotContains(t, err.Error(), "aro-collector")

	e.lookPath = func(file string) (string, error) { return "/opt/" + file, nil }
	assert.NoError(t, e.ValidateBinaryExistence())
}
