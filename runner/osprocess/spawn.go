package osprocess

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/whitaker-io/flowgraph/spec"
)

var defaultLogger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.WarnLevel,
}

// process bundles the launched child with the stdio ends the wire
// protocol drives and the process's own exit signal.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	exited chan error
}

// spawn launches s.Cmd with s.Env, pipes stdin/stdout unconditionally,
// pipes stderr iff s.Log requests capture, and starts log capture before
// returning. It does not probe the handle itself: the caller does, and
// reports an already-exited process as UnexpectedProcessExit, since the
// handshake has not run yet.
func spawn(ctx context.Context, s *spec.OsProcessSpec, logger *logrus.Logger) (*process, error) {
	if logger == nil {
		logger = defaultLogger
	}
	if len(s.Cmd) == 0 {
		return nil, &SpawnError{Kind: EmptyCmd}
	}

	cmd := exec.CommandContext(ctx, s.Cmd[0], s.Cmd[1:]...)
	cmd.Env = mergeEnv(os.Environ(), s.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Kind: StdinMissing, Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Kind: StdoutMissing, Cause: err}
	}

	var stderr io.ReadCloser
	captureLog := s.Log != nil && s.Log.Type != spec.LogNoCapture
	if captureLog {
		stderr, err = cmd.StderrPipe()
		if err != nil {
			return nil, &SpawnError{Kind: StderrMissing, Cause: err}
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Kind: ProcessStartError, Cause: err}
	}

	if captureLog {
		if err := captureStderr(s.Log, stderr, logger); err != nil {
			logger.Warn(map[string]interface{}{
				"message": "osprocess: log capture failed to start",
				"cmd":     s.Cmd,
				"error":   err.Error(),
			})
		}
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	return &process{cmd: cmd, stdin: stdin, stdout: stdout, exited: exited}, nil
}

func mergeEnv(base []string, overlay map[string]string) []string {
	env := make([]string, len(base), len(base)+len(overlay))
	copy(env, base)
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}

// captureStderr starts the goroutine that drains stderr according to
// log.Type: Null discards every line, File appends each line (newline
// terminated) to an append-create file. A LogOpenError aborts capture
// before the goroutine starts; LogWriteError/StderrReadError are logged
// per line, since §4.H only requires these to be reported, not to kill
// the vertex.
func captureStderr(log *spec.LogSpec, stderr io.ReadCloser, logger *logrus.Logger) error {
	switch log.Type {
	case spec.LogNull:
		go drainDiscard(stderr)
		return nil
	case spec.LogFile:
		f, err := os.OpenFile(log.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			go drainDiscard(stderr)
			return &SpawnError{Kind: LogOpenError, Cause: err}
		}
		go drainToFile(stderr, f, logger)
		return nil
	default:
		go drainDiscard(stderr)
		return nil
	}
}

func drainDiscard(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}

func drainToFile(r io.Reader, f *os.File, logger *logrus.Logger) {
	defer f.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if _, err := f.WriteString(scanner.Text() + "\n"); err != nil {
			logger.Warn(map[string]interface{}{
				"message": "osprocess: log write failed",
				"path":    f.Name(),
				"error":   (&SpawnError{Kind: LogWriteError, Cause: err}).Error(),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn(map[string]interface{}{
			"message": "osprocess: stderr read failed",
			"error":   (&SpawnError{Kind: StderrReadError, Cause: err}).Error(),
		})
	}
}
