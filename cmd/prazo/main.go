// Command prazo is the standalone CLI for the deadline engine.  It runs the
// full calculation pipeline in-process against a local rule document, with no
// server, database, or broker required.
package main

import (
	"fmt"
	"os"

	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/internal/infrastructure/rulesource"
	"github.com/jurisflow/prazo/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const rulesPathEnv = "PRAZO_RULES"

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	log, err := logging.NewLogger(logging.Config{Level: "warn", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	repo := rules.NewMemoryRepository()
	if path := rulesPath(); path != "" {
		if err := rulesource.NewFileSource(path, repo, log).Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: loading rule document %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	registry := suspension.NewRegistry()
	store := settings.NewMemoryStore()

	deps := cli.Dependencies{
		Calculator:  deadline.NewCalculator(repo, registry, store, nil, log),
		Deadlines:   deadline.NewMemoryStore(),
		Rules:       repo,
		Settings:    store,
		Suspensions: registry,
		Logger:      log,
	}

	if err := cli.NewRootCommand(deps).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rulesPath resolves the rule document: $PRAZO_RULES wins, then the default
// location when it exists.  An empty result starts with no published version;
// "prazo rules publish" can load one later.
func rulesPath() string {
	if p := os.Getenv(rulesPathEnv); p != "" {
		return p
	}
	const fallback = "configs/rules.json"
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}
