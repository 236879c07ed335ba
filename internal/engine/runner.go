package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultJavaBin    = "java"
	DefaultEmbulkPath = "/embulk/bin/embulk"
	DefaultEmbulkHome = "/embulk"
	DefaultConfigDir  = "/embulk/config/"

	// DefaultTimeout keeps a run under the 15 minute Lambda ceiling.
	DefaultTimeout = 780 * time.Second

	killGrace = 5 * time.Second
)

var jvmFlags = []string{
	"-Xmx6g",
	"-Xms2g",
	"-XX:+UseG1GC",
	"-XX:MaxGCPauseMillis=200",
}

type Runner struct {
	JavaBin    string
	EmbulkPath string
	EmbulkHome string
	ConfigDir  string
	Timeout    time.Duration

	// Env is appended to the inherited environment; keys already set in
	// the parent process win.
	Env map[string]string

	Stdout io.Writer
	Stderr io.Writer
}

func NewRunner() *Runner {
	return &Runner{
		JavaBin:    DefaultJavaBin,
		EmbulkPath: DefaultEmbulkPath,
		EmbulkHome: DefaultEmbulkHome,
		ConfigDir:  DefaultConfigDir,
		Timeout:    DefaultTimeout,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// BuildCommand returns the argv for an Embulk run with the fixed layout.
func BuildCommand(configFileName string) []string {
	return NewRunner().Command(configFileName)
}

// Command builds the argv for configFileName. The name is appended to the
// config directory verbatim: no cleaning or existence check happens here.
func (r *Runner) Command(configFileName string) []string {
	args := make([]string, 0, len(jvmFlags)+9)
	args = append(args, r.JavaBin)
	args = append(args, jvmFlags...)
	args = append(args,
		"-jar", r.EmbulkPath,
		"-X", "embulk_home="+r.EmbulkHome,
		"-l", "debug",
		"run", r.ConfigDir+configFileName,
	)
	return args
}

// Run executes Embulk once and blocks until it exits or the timeout fires.
// Cancellation of ctx is ignored; only the runner's own deadline stops the
// process.
func (r *Runner) Run(ctx context.Context, req Request) Outcome {
	if r == nil {
		return StartFailed(errors.New("runner is nil"))
	}
	if req.ConfigFileName == "" {
		return ValidationFailed(ErrMissingConfigFile)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	argv := r.Command(req.ConfigFileName)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = mergeEnv(os.Environ(), r.Env)
	cmd.WaitDelay = killGrace
	configureProcessGroup(cmd)

	err := cmd.Run()
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return TimedOut()
	}
	return classify(cmd.ProcessState, err)
}

// classify maps the result of cmd.Run to an outcome. The exit status wins
// over output forwarding errors reported by Wait.
func classify(state *os.ProcessState, err error) Outcome {
	if state != nil && state.Exited() {
		if code := state.ExitCode(); code != 0 {
			return NonZeroExit(code)
		}
		return Succeeded()
	}
	if err == nil {
		return Succeeded()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NonZeroExit(exitErr.ExitCode())
	}
	return StartFailed(err)
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	present := make(map[string]struct{}, len(base))
	for _, kv := range base {
		if k, _, ok := strings.Cut(kv, "="); ok {
			present[k] = struct{}{}
		}
	}

	merged := append([]string(nil), base...)
	for k, v := range extra {
		if _, ok := present[k]; ok {
			continue
		}
		merged = append(merged, k+"="+v)
	}
	return merged
}
