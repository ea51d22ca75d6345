package process

import (
	"io"
	"time"
)

// Command is one invocation of an engine binary such as tesseract or
// espeak-ng.
type Command struct {
	// Binary is looked up on PATH unless it contains a slash.
	Binary string
	Args   []string
	// Env entries (KEY=value) are appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// Timeout bounds one attempt. Zero leaves only the context deadline.
	Timeout time.Duration
	// GracePeriod separates the stop signal from the kill. Defaults to 5s.
	GracePeriod time.Duration
}

// Result is what a finished engine run left behind. ExitCode is -1 when the
// process never reported one, for example after being killed.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}
