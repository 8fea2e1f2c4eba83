package bridge

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// HealthStatus is the composite result of HealthCheck (spec §4.5 "Health
// check"): three independent signals, each reported separately so a
// caller can distinguish "analyzer binary missing" from "script missing"
// from "last start attempt failed".
type HealthStatus struct {
	ExecutableOK bool
	ScriptOK     bool
	NoPriorError bool
	Err          error
}

// OK reports whether every signal passed.
func (h HealthStatus) OK() bool { return h.ExecutableOK && h.ScriptOK && h.NoPriorError }

// HealthCheck runs the analyzer binary with --version out-of-band (not
// through the IPC pipe), confirms the script file exists on disk, and
// reports whether the last spawn attempt recorded a failure (spec §4.5
// "Health check": executable responds, script exists, no prior failure).
func (b *Bridge) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{NoPriorError: b.LastError() == nil}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, b.opts.ExecutablePath, "--version") // #nosec G204 -- configured executable path, not untrusted input
	if err := cmd.Run(); err != nil {
		status.Err = err
	} else {
		status.ExecutableOK = true
	}

	if info, err := os.Stat(b.opts.ScriptPath); err == nil && !info.IsDir() {
		status.ScriptOK = true
	}

	return status
}
