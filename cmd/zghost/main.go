package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zghost/internal/agent"
	"github.com/zarlcorp/zghost/internal/bus"
	"github.com/zarlcorp/zghost/internal/cli"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/persona"
	"github.com/zarlcorp/zghost/internal/popup"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zghost"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	if len(os.Args) > 1 {
		runCLI(ctx, os.Args[1])
		_ = app.Close()
		return
	}

	if err := runPopup(ctx); err != nil {
		slog.Error("popup", "err", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, cmd string) {
	switch cmd {
	case "version":
		fmt.Printf("zghost %s\n", version)
	case "email":
		cli.CmdEmail(os.Args[2:])
	case "generate":
		cli.CmdGenerate(ctx, os.Args[2:])
	case "history":
		cli.CmdHistory(os.Args[2:])
	case "ingest":
		cli.CmdIngest(os.Args[2:])
	case "settings":
		cli.CmdSettings(os.Args[2:])
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "zghost: unknown command %q\n", cmd)
		usage(os.Stderr)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `zghost keeps a disposable identity one keystroke away.

usage:
  zghost                       open the quick panel
  zghost email [--json]        print the current address
  zghost generate [--json]     mint a fresh identity headlessly
  zghost history [--json]      list retired identities
  zghost history --clear       forget retired identities
  zghost ingest [--from ADDR]  read a message on stdin, capture its code
  zghost settings --set-key K  store the LLM API key (pass - to read stdin)
  zghost version               print the version
`)
}

func runPopup(ctx context.Context) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("the panel needs a terminal; see zghost help for headless commands")
	}

	dataDir := cli.DataDir()
	cfg, err := cli.LoadConfig(dataDir)
	if err != nil {
		return err
	}

	v, err := cli.OpenVault(dataDir, cfg.History.Limit)
	if err != nil {
		return err
	}
	defer v.Close()

	b := bus.New()
	defer b.Close()

	agentCtx, stopAgent := context.WithCancel(ctx)
	agentDone := make(chan struct{})
	go func() {
		defer close(agentDone)
		agent.New(v, persona.New(identity.New()), cfg.Identity.Domain).Run(agentCtx, b)
	}()
	// The agent must be stopped before its vault is closed.
	defer func() {
		stopAgent()
		<-agentDone
	}()

	m := popup.New(version, v, b, dataDir, slog.Default())
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		m.Close()
		return err
	}

	if fm, ok := finalModel.(popup.Model); ok {
		fm.Close()
	}
	return nil
}
