package probe

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"time"
)

const (
	DefaultCommand = "ping"
	DefaultTimeout = time.Second

	// waitDelay bounds how long Wait keeps reading pipes after the kill.
	waitDelay = 250 * time.Millisecond
)

// ExecProbe runs `<Command> -c 1 -w <secs> <target>` once per call.
type ExecProbe struct {
	Command string
	// Timeout caps each invocation; the process is killed when it expires.
	Timeout time.Duration
}

// NewExecProbe returns an ExecProbe; empty/zero values take defaults.
func NewExecProbe(command string, timeout time.Duration) *ExecProbe {
	if command == "" {
		command = DefaultCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecProbe{Command: command, Timeout: timeout}
}

// Args builds the argument list for one invocation.
func (p *ExecProbe) Args(target string) []string {
	// ping's -w takes whole seconds; round up so it never undercuts Timeout's intent.
	secs := int((p.Timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{"-c", "1", "-w", strconv.Itoa(secs), target}
}

func (p *ExecProbe) Probe(ctx context.Context, target string) Result {
	if target == "" {
		return Unavailable("empty target")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Command, p.Args(target)...)
	cmd.WaitDelay = waitDelay
	out, err := cmd.Output()

	// ping exits non-zero on loss but may still have printed a reply line.
	if ms, ok := ParseTime(out); ok {
		return Latency(ms)
	}
	if ctx.Err() != nil {
		return Unavailable("timeout: " + ctx.Err().Error())
	}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return Unavailable("exit status " + strconv.Itoa(ee.ExitCode()))
		}
		return Unavailable(err.Error())
	}
	return Unavailable("no time= in output")
}
