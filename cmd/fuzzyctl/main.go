// Command fuzzyctl submits fuzzy search jobs and follows their progress.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
)

type commandFn func(cc *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

// ctlConfig is read from the environment; flags override it.
type ctlConfig struct {
	URL       string        `env:"FUZZYCTL_URL"        envDefault:"http://localhost:8080"`
	Token     string        `env:"FUZZYCTL_TOKEN"`
	TokenFile string        `env:"FUZZYCTL_TOKEN_FILE"`
	Timeout   time.Duration `env:"FUZZYCTL_TIMEOUT"    envDefault:"30s"`
}

type commandContext struct {
	Ctx    context.Context
	Config ctlConfig
	// Query is a JMESPath expression applied to JSON output.
	Query  string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code) //nolint:forbidigo // CLI must propagate command status to the shell
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cfg ctlConfig
	if err := env.Parse(&cfg); err != nil {
		_ = writef(stderr, "parse environment: %v\n", err)
		return 1
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}

	global := flag.NewFlagSet("fuzzyctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.StringVar(&cfg.URL, "url", cfg.URL, "Server base URL")
	global.StringVar(&cfg.Token, "token", cfg.Token, "Bearer token (overrides the saved login)")
	global.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Where login stores credentials")
	global.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	query := global.String("query", "", "JMESPath expression applied to JSON output")
	global.Usage = func() { _ = printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		_ = printUsage(stderr)
		return 2
	}
	cmd, ok := commands()[rest[0]]
	if !ok {
		_ = writef(stderr, "unknown command %q\n\n", rest[0])
		_ = printUsage(stderr)
		return 2
	}

	cc := &commandContext{
		Ctx:    ctx,
		Config: cfg,
		Query:  *query,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
	if err := cmd.run(cc, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_ = writef(stderr, "%s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Obtain and save a token with the OIDC password grant",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Remove the saved token",
			run:         runLogout,
		},
		"submit": {
			name:        "submit",
			description: "Submit a search job and print its task id",
			run:         runSubmit,
		},
		"status": {
			name:        "status",
			description: "Print the current status of a task",
			run:         runStatus,
		},
		"watch": {
			name:        "watch",
			description: "Poll a task until it finishes, printing progress",
			run:         runWatch,
		},
		"search": {
			name:        "search",
			description: "Run a blocking search and print the ranked results",
			run:         runSearch,
		},
		"run": {
			name:        "run",
			description: "Submit every job in a JSON-lines script over a push session",
			run:         runScript,
		},
		"corpus-upload": {
			name:        "corpus-upload",
			description: "Upload a text file as a new corpus",
			run:         runCorpusUpload,
		},
		"corpus-list": {
			name:        "corpus-list",
			description: "List stored corpora",
			run:         runCorpusList,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: fuzzyctl [global flags] <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return writef(w, "\nGlobal flags: --url, --token, --token-file, --timeout, --query\n")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".fuzzyctl-token.json"
	}
	return filepath.Join(dir, "fuzzyctl", "token.json")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
