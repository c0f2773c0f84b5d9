package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/domain"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
)

var (
	ErrCommandTimeout = errors.New("executor: command timed out")
	ErrUnknownAction  = errors.New("executor: command requests no action")
	ErrBinaryMissing  = errors.New("executor: binary not configured")
	ErrBinaryNotFound = errors.New("executor: binary not found")
)

// maxErrorOutput bounds the stderr tail carried in failure messages
const maxErrorOutput = 4096

type CommandResult struct {
	Success  bool
	Output   string
	ExitCode int
	Duration time.Duration
}

type runFunc func(ctx context.Context, dir, bin string, args []string) (*CommandResult, error)

// Executor runs the configured collector and analyzer binaries for accepted commands
type Executor struct {
	collectorBin string
	analyzerBin  string
	workDir      string
	timeout      time.Duration
	logger       *logger.Logger
	run          runFunc
	lookPath     func(file string) (string, error)
}

func NewExecutor(cfg config.ExecutorConfig, log *logger.Logger) *Executor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	return &Executor{
		collectorBin: cfg.CollectorBin,
		analyzerBin:  cfg.AnalyzerBin,
		workDir:      cfg.WorkDir,
		timeout:      timeout,
		logger:       log,
		run:          runProcess,
		lookPath:     exec.LookPath,
	}
}

// Execute starts the collector or analyzer for cmd and waits for it. A
// failure message ends with the tail of the process' stderr.
func (e *Executor) Execute(ctx context.Context, cmd *domain.CommandDescriptor) error {
	var bin string
	var args []string

	switch cmd.Action() {
	case domain.ActionStartCollector:
		bin, args = e.collectorBin, CollectorArgs(cmd)
	case domain.ActionAnalyze:
		bin, args = e.analyzerBin, AnalyzerArgs(cmd)
	default:
		return ErrUnknownAction
	}
	if bin == "" {
		return fmt.Errorf("%w for %s", ErrBinaryMissing, cmd.Action())
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Infow("executor_start", "action", cmd.Action(), "bin", bin, "args", strings.Join(args, " "))
	result, err := e.run(runCtx, e.workDir, bin, args)

	if err != nil {
		if ctx.Err() != nil {
			e.logger.Warnw("executor_interrupted", "bin", bin, "error", ctx.Err())
			return fmt.Errorf("executor: %s interrupted: %w", bin, ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			e.logger.Errorw("executor_timeout", "bin", bin, "timeout", e.timeout)
			return fmt.Errorf("%w after %v: %s", ErrCommandTimeout, e.timeout, bin)
		}
		exitCode := -1
		output := err.Error()
		if result != nil {
			exitCode = result.ExitCode
			if result.Output != "" {
				output = result.Output
			}
		}
		e.logger.Errorw("executor_failed", "bin", bin, "exit_code", exitCode, "error", err)
		return fmt.Errorf("executor: %s exited with code %d: %s", bin, exitCode, tail(output, maxErrorOutput))
	}

	e.logger.Infow("executor_done", "bin", bin, "duration", result.Duration)
	return nil
}

// ValidateBinaryExistence resolves the configured collector and analyzer
// binaries on PATH or as given.
func (e *Executor) ValidateBinaryExistence() error {
	var missing []string
	for _, bin := range []string{e.collectorBin, e.analyzerBin} {
		if bin == "" {
			continue
		}
		path, err := e.lookPath(bin)
		if err != nil {
			missing = append(missing, bin)
			continue
		}
		e.logger.Infow("executor_binary_found", "bin", bin, "path", path)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// CollectorArgs builds the collector command line for cmd
func CollectorArgs(cmd *domain.CommandDescriptor) []string {
	args := []string{"--kind", cmd.StartCollector, "--output", cmd.Output}
	if cmd.Video != "" {
		args = append(args, "--video", cmd.Video)
	}
	if cmd.Secure {
		args = append(args, "--secure")
	}
	if cmd.CertInstall {
		args = append(args, "--certinstall")
	}
	if cmd.Uplink != 0 {
		args = append(args, "--uplink", strconv.Itoa(cmd.Uplink))
	}
	if cmd.Downlink != 0 {
		args = append(args, "--downlink", strconv.Itoa(cmd.Downlink))
	}
	args = append(args, "--orientation", cmd.GetOrientation())
	if cmd.DeviceID != "" {
		args = append(args, "--deviceid", cmd.DeviceID)
	}
	return args
}

// AnalyzerArgs builds the analyzer command line for cmd
func AnalyzerArgs(cmd *domain.CommandDescriptor) []string {
	args := []string{"--trace", cmd.Analyze, "--format", cmd.GetFormat(), "--output", cmd.Output}
	if cmd.Video != "" {
		args = append(args, "--video", cmd.Video)
	}
	return args
}

func runProcess(ctx context.Context, dir, bin string, args []string) (*CommandResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &CommandResult{
		Duration: time.Since(start),
		Output:   stdout.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Output = stderr.String()
		} else {
			result.ExitCode = -1
			result.Output = err.Error()
		}
		return result, err
	}

	result.Success = true
	return result, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
