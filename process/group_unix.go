//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// configureGroup runs the child in its own process group so cancellation
// reaches every process it spawned.
func configureGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
}
