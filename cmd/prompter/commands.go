package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/server"
	"github.com/hammamikhairi/pocketprompter/internal/writer"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prompter over HTTP and WebSocket",
	Long: `Starts an HTTP server exposing the session as a JSON API and streams
state changes to WebSocket clients at /ws/{clientID}, where clientID is a
UUID chosen by the client. A phone can drive playback while a laptop or
tablet renders the script.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var rewriteTone string

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [file]",
	Short: "Rewrite a script once and print the result",
	Long: `Reads a script from file (or stdin when no file is given), rewrites it
in the requested tone and prints the new script to stdout.

Tones: casual, professional, controversial.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRewrite,
}

var (
	contractReq writer.ContractRequest
	contractRaw bool
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Draft a sponsorship contract",
	Long: `Drafts a sponsorship contract between a client and a content creator
and renders the Markdown in the terminal.

Example:
  prompter contract --client "Acme Ltd" --creator "Dana Reis" \
    --value "R$ 5.000" --deliverables "2 Reels, 3 Stories" --deadline 2025-03-01`,
	Args: cobra.NoArgs,
	RunE: runContract,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	rewriteCmd.Flags().StringVarP(&rewriteTone, "tone", "t", domain.ToneCasual.String(), "rewrite tone")

	contractCmd.Flags().StringVar(&contractReq.ClientName, "client", "", "client (sponsor) name")
	contractCmd.Flags().StringVar(&contractReq.CreatorName, "creator", "", "content creator name")
	contractCmd.Flags().StringVar(&contractReq.Value, "value", "", "total contract value")
	contractCmd.Flags().StringVar(&contractReq.Deliverables, "deliverables", "", "deliverables")
	contractCmd.Flags().StringVar(&contractReq.Deadline, "deadline", "", "delivery deadline")
	contractCmd.Flags().BoolVar(&contractRaw, "raw", false, "print raw Markdown instead of rendering it")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(ctrl, a.writer, a.log.Named("server"))
	fmt.Fprintf(cmd.OutOrStdout(), "Prompter serving on http://%s (ctrl+c to stop)\n", addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, addr) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	return g.Wait()
}

func runRewrite(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.closeLog()

	script, err := readScript(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	tone, known := domain.ParseTone(rewriteTone)
	if !known {
		fmt.Fprintf(cmd.ErrOrStderr(), "unknown tone %q, using %s\n", rewriteTone, tone)
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := a.writer.Rewrite(ctx, script, tone)
	if err != nil {
		if res.ErrorMessage != "" {
			return errors.New(res.ErrorMessage)
		}
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Text)
	return nil
}

func readScript(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func runContract(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.closeLog()

	ctx, cancel := signalContext()
	defer cancel()

	md, err := a.writer.GenerateContract(ctx, contractReq)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if contractRaw {
		fmt.Fprintln(out, md)
		return nil
	}
	rendered, err := renderMarkdown(md)
	if err != nil {
		a.log.Warn("markdown render failed, printing raw: %v", err)
		fmt.Fprintln(out, md)
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(termColumns(), 100)),
	)
	if err != nil {
		return "", err
	}
	return r.Render(strings.TrimSpace(md))
}

// termColumns is the stdout width, or 80 when it is not a terminal.
func termColumns() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 20 {
		return w
	}
	return 80
}
