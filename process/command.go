package process

import (
	"io"
	"os"
	"strconv"
	"strings"
)

// Command configures a subprocess to execute. It is not modified by Execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string `mapstructure:"binary" validate:"required"`
	// Args are the command-line arguments.
	Args []string `mapstructure:"args"`
	// Dir is the working directory. If empty, uses the current directory.
	Dir string `mapstructure:"dir"`
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string `mapstructure:"env"`
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader `mapstructure:"-"`
}

// NewCommand builds a Command from an argument vector whose first element
// is the executable.
func NewCommand(argv ...string) Command {
	if len(argv) == 0 {
		return Command{}
	}
	return Command{Binary: argv[0], Args: append([]string(nil), argv[1:]...)}
}

// Argv returns the full argument vector, executable first.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Binary)
	return append(argv, c.Args...)
}

// String renders the command for logs, quoting arguments that contain
// whitespace or quotes.
func (c Command) String() string {
	parts := c.Argv()
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\n\"'") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
