// Prompter: a terminal and browser teleprompter with AI script rewriting.
//
// Usage:
//
//	prompter [--script file [--watch]]       interactive terminal prompter
//	prompter serve [--addr host:port]        HTTP + WebSocket remote
//	prompter rewrite --tone casual [file]    one-shot rewrite to stdout
//	prompter contract --client ... --creator ...
package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/pocketprompter/internal/config"
	"github.com/hammamikhairi/pocketprompter/internal/display"
	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/gemini"
	"github.com/hammamikhairi/pocketprompter/internal/gpt"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
	"github.com/hammamikhairi/pocketprompter/internal/playback"
	"github.com/hammamikhairi/pocketprompter/internal/scriptfile"
	"github.com/hammamikhairi/pocketprompter/internal/session"
	"github.com/hammamikhairi/pocketprompter/internal/timer"
	"github.com/hammamikhairi/pocketprompter/internal/writer"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool
	logFile    string
	provider   string

	// Session flags
	scriptPath  string
	watchScript bool
)

var rootCmd = &cobra.Command{
	Use:   "prompter",
	Short: "Teleprompter with AI script rewriting",
	Long: `Prompter scrolls a script at a steady pace for reading on camera.

While editing, the script can be rewritten by a text-generation model in a
casual, professional or controversial tone. While playing, the speed, font
size and mirroring can be adjusted; the controls fade after a few seconds
without input and come back on any key or mouse movement.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: ./"+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "disable all logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "file to write logs to (use \"stderr\" to log to console)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "text-generation backend: gemini or openai")

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVarP(&scriptPath, "script", "s", "", "load the script from a file")
		c.Flags().BoolVarP(&watchScript, "watch", "w", false, "reload the script file when it changes on disk")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(contractCmd)
}

func main() {
	config.LoadDotEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	writer *writer.Writer

	closeLog func()
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if provider != "" {
		cfg.Provider = provider
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	logLevel, _ := logger.ParseLevel(cfg.Logging.Level)
	if verbose {
		logLevel = logger.LevelVerbose
	}
	if quiet {
		logLevel = logger.LevelOff
	}

	logOut, closeLog := openLogOutput(cfg.Logging.File)
	// Third-party packages that use the standard logger go to the same
	// place so they don't draw over the TUI.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	gen := newGenerator(cfg, log)
	if !cfg.HasCredential() {
		log.Info("AI rewrite disabled: set %s (gemini) or %s and %s (openai) to enable",
			config.EnvGeminiKey, config.EnvGPTKey, config.EnvGPTEndpoint)
	} else {
		log.Info("AI rewrite enabled (provider=%s)", cfg.Provider)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		writer: writer.New(gen, log.Named("writer")),
		closeLog: func() {
			log.Sync()
			closeLog()
		},
	}, nil
}

// openLogOutput opens the log file, creating its directory. On failure it
// falls back to stderr.
func openLogOutput(path string) (io.Writer, func()) {
	if path == "" || path == "stderr" {
		return os.Stderr, func() {}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr, func() {}
	}
	return f, func() { f.Close() }
}

// newGenerator picks the backend for the configured provider. Without a
// credential the returned generator reports itself unconfigured.
func newGenerator(cfg *config.Config, log *logger.Logger) domain.TextGenerator {
	timeout := cfg.TimeoutDuration()

	if cfg.Provider == config.ProviderOpenAI {
		opts := []gpt.ClientOption{
			gpt.WithHTTPTimeout(timeout),
			gpt.WithTemperature(cfg.OpenAI.Temperature),
			gpt.WithMaxTokens(cfg.OpenAI.MaxTokens),
		}
		if cfg.OpenAI.Model != "" {
			opts = append(opts, gpt.WithModel(cfg.OpenAI.Model))
		}
		return gpt.NewClient(cfg.OpenAI.Endpoint, cfg.OpenAI.APIKey, log.Named("gpt"), opts...)
	}

	opts := []gemini.Option{
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTemperature(float32(cfg.Gemini.Temperature)),
		gemini.WithHTTPTimeout(timeout),
	}
	if cfg.Gemini.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	return gemini.New(cfg.Gemini.APIKey, log.Named("gemini"), opts...)
}

// newSession builds the controller and its pacer from config and flags.
func (a *app) newSession() (*session.Controller, error) {
	pb := a.cfg.Playback

	opts := []session.Option{
		session.WithIdleTimeout(a.cfg.IdleTimeout()),
		session.WithPlayback(
			playback.WithSpeed(pb.Speed),
			playback.WithFontSize(pb.FontSize),
			playback.WithMirrored(pb.Mirrored),
		),
	}
	if scriptPath != "" {
		text, err := scriptfile.Load(scriptPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithScript(text))
	}

	pacer := timer.New(a.log.Named("pacer"),
		timer.WithScrollInterval(a.cfg.ScrollInterval()),
		timer.WithIdleInterval(a.cfg.IdleInterval()),
	)
	opts = append(opts, session.WithPacer(pacer))

	ctrl := session.New(a.writer, a.log.Named("session"), opts...)
	pacer.Bind(ctrl)
	return ctrl, nil
}

// scriptWatcher returns a watcher feeding ctrl, or nil when --watch is off.
func (a *app) scriptWatcher(ctrl *session.Controller) (*scriptfile.Watcher, error) {
	if !watchScript {
		return nil, nil
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("--watch requires --script")
	}
	return scriptfile.NewWatcher(scriptPath, ctrl.EditScript, a.log.Named("scriptfile")), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.closeLog()

	ctrl, err := a.newSession()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	watcher, err := a.scriptWatcher(ctrl)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if watcher != nil {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				a.log.Error("%v", err)
			}
		}()
	}

	// Bubble Tea owns the terminal and blocks until quit.
	ui := display.NewUI(ctrl, a.log.Named("display"))
	if err := ui.Run(ctx); err != nil {
		a.log.Error("display: %v", err)
		return err
	}
	return nil
}
