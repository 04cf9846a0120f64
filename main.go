// Command opendev runs the engineering assistant: a planner/dispatcher
// orchestrator over mode-scoped tool loops, fronted by a web API.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"opendev/pkg/agent"
	"opendev/pkg/agent/middleware/metrics"
	"opendev/pkg/config"
	execpkg "opendev/pkg/exec"
	"opendev/pkg/logx"
	"opendev/pkg/orchestrator"
	"opendev/pkg/persistence"
	"opendev/pkg/version"
	"opendev/pkg/webui"
)

func main() {
	var (
		projectDir string
		request    string
		provider   string
		noWeb      bool
	)
	flag.StringVar(&projectDir, "project", ".", "Project directory (config, secrets, database live here)")
	flag.StringVar(&request, "request", "", "Run a single request and print the report instead of serving")
	flag.StringVar(&provider, "provider", "", "Provider for -request (default from config)")
	flag.BoolVar(&noWeb, "no-web", false, "Do not start the web server")
	flag.Parse()

	if err := run(projectDir, request, provider, noWeb); err != nil {
		fmt.Fprintf(os.Stderr, "opendev: %v\n", err)
		os.Exit(1)
	}
}

func run(projectDir, request, provider string, noWeb bool) error {
	logger := logx.NewLogger("main")
	logger.Info("opendev %s (%s, built %s)", version.Version, version.Commit, version.Date)

	cfg, err := config.LoadConfig(projectDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config.SetConfig(cfg)

	if err := loadSecrets(projectDir, logger); err != nil {
		return err
	}

	store, err := persistence.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	registry := agent.NewRegistry(cfg, metrics.NewPrometheusRecorder())
	engine := orchestrator.NewEngine(cfg, registry, execpkg.NewLocalExec(), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if request != "" {
		return runOnce(ctx, engine, registry, store, request, provider)
	}

	if noWeb || !cfg.Web.Enabled {
		logger.Info("Web server disabled, nothing to serve; use -request for one-shot mode")
		return nil
	}

	server := webui.NewServer(cfg, engine, registry, store)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("web server failed: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

// runOnce executes a single request and prints the report to stdout.
func runOnce(ctx context.Context, engine *orchestrator.Engine, registry *agent.Registry, store *persistence.Store, request, provider string) error {
	resolved, err := registry.Resolve(provider)
	if err != nil {
		return err
	}

	st, execErr := engine.Execute(ctx, request, resolved)
	if err := store.SaveExecution(st); err != nil {
		logx.NewLogger("main").Error("Failed to persist execution %s: %v", st.ID, err)
	}
	if execErr != nil {
		return execErr
	}

	fmt.Println(st.FinalResponse)
	return nil
}

// loadSecrets decrypts the project secrets file when one exists, prompting
// for the password on a TTY and falling back to OPENDEV_PASSWORD otherwise.
// Without a secrets file, provider keys come from the environment.
func loadSecrets(projectDir string, logger *logx.Logger) error {
	password := os.Getenv("OPENDEV_PASSWORD")

	if config.SecretsFileExists(projectDir) {
		if password == "" {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("secrets file present but no password: set OPENDEV_PASSWORD or run on a terminal")
			}
			fmt.Fprint(os.Stderr, "Project password: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(raw)
		}

		secrets, err := config.DecryptSecretsFile(projectDir, password)
		if err != nil {
			return fmt.Errorf("failed to decrypt secrets: %w", err)
		}
		config.SetDecryptedSecrets(secrets)
		logger.Info("Loaded %d secrets", len(secrets))
	}

	if password == "" {
		// Web auth still needs a password even without a secrets file.
		password = generatePassword()
		logger.Info("Generated web password: %s", password)
	}
	config.SetProjectPassword(password)
	return nil
}

// generatePassword returns a random hex password for the web UI.
func generatePassword() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the platform is broken; bail out.
		panic(fmt.Sprintf("failed to generate password: %v", err))
	}
	return hex.EncodeToString(buf)
}
