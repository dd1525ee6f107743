package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stanzabuild/stanza/pkg/envcodec"
)

// Request describes one subprocess launch.
type Request struct {
	// Program is the executable to run. Required.
	Program string
	// Args are passed to the program verbatim.
	Args []string
	// Dir is the working directory. Empty means the caller's.
	Dir string

	// BaseEnv is the environment to start from. Nil means os.Environ().
	// An empty non-nil slice launches with only the plugin variables.
	BaseEnv []string
	// Plugins is the plugin environment to apply on top of BaseEnv. The
	// encoding is read, never mutated.
	Plugins *envcodec.Encoding

	Stdin  io.Reader
	// Stdout and Stderr receive the child's output as it is produced.
	// Nil means the parent's streams.
	Stdout io.Writer
	Stderr io.Writer

	// Timeout bounds the child process. Zero means no timeout beyond the
	// caller's context.
	Timeout time.Duration
}

// Result reports how a launch ended.
type Result struct {
	// ExitCode is the child's exit status, or -1 when the child never ran
	// or was killed by a signal.
	ExitCode int
	Duration time.Duration
}

// Launcher starts consumer subprocesses with the plugin environment applied.
type Launcher struct {
	log *logrus.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(log *logrus.Logger) *Launcher {
	if log == nil {
		log = logrus.New()
	}
	return &Launcher{log: log}
}

// Run starts the requested program and waits for it to finish. The child's
// environment is BaseEnv with the plugin variables applied; the write is
// scoped to the child, the launcher never touches the parent's environment.
//
// A non-zero exit returns the Result alongside an error, so callers can
// propagate the child's exit code.
func (l *Launcher) Run(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Program == "" {
		return nil, fmt.Errorf("program is required")
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := l.command(ctx, req)

	pluginVars := 0
	if req.Plugins != nil {
		pluginVars = req.Plugins.Len()
	}
	l.log.WithFields(logrus.Fields{
		"program":     req.Program,
		"args":        len(req.Args),
		"plugin_vars": pluginVars,
	}).Debug("Launching subprocess")

	start := time.Now()
	err := cmd.Run()
	result := &Result{ExitCode: -1, Duration: time.Since(start)}

	if err != nil {
		exitErr, exited := err.(*exec.ExitError)
		if exited {
			result.ExitCode = exitErr.ExitCode()
		}
		// A context kill also surfaces as an ExitError, so check the
		// context before reporting an exit status.
		if ctx.Err() != nil {
			return result, fmt.Errorf("%s interrupted: %w", req.Program, ctx.Err())
		}
		if exited {
			return result, fmt.Errorf("%s exited with status %d", req.Program, result.ExitCode)
		}
		return result, fmt.Errorf("failed to launch %s: %w", req.Program, err)
	}

	result.ExitCode = 0
	l.log.WithFields(logrus.Fields{
		"program":  req.Program,
		"duration": result.Duration,
	}).Debug("Subprocess finished")
	return result, nil
}

func (l *Launcher) command(ctx context.Context, req *Request) *exec.Cmd {
	cmd := exec.CommandContext(ctx, req.Program, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = childEnviron(req)

	cmd.Stdin = req.Stdin
	cmd.Stdout = req.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = req.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd
}

// childEnviron merges the plugin variables into the base environment. A
// plugin variable replaces a same-named base entry in place, so the child
// sees each name exactly once; new names append in encoding order.
func childEnviron(req *Request) []string {
	base := req.BaseEnv
	if base == nil {
		base = os.Environ()
	}

	env := append([]string(nil), base...)
	if req.Plugins == nil || req.Plugins.Empty() {
		return env
	}

	index := make(map[string]int, len(env))
	for i, entry := range env {
		if eq := strings.IndexByte(entry, '='); eq > 0 {
			index[entry[:eq]] = i
		}
	}

	for _, entry := range req.Plugins.Environ() {
		eq := strings.IndexByte(entry, '=')
		if at, ok := index[entry[:eq]]; ok {
			env[at] = entry
			continue
		}
		index[entry[:eq]] = len(env)
		env = append(env, entry)
	}
	return env
}
