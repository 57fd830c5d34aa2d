// Package cli implements zghost's headless subcommands and the vault
// plumbing shared with the popup launcher.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zghost/internal/codes"
	"github.com/zarlcorp/zghost/internal/config"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/persona"
	"github.com/zarlcorp/zghost/internal/vault"
	"golang.org/x/term"
)

// DataDir returns the zghost data directory. ZGHOST_DATA_DIR wins,
// then XDG_DATA_HOME, then ~/.local/share.
func DataDir() string {
	if d := os.Getenv("ZGHOST_DATA_DIR"); d != "" {
		return d
	}
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d + "/zghost"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zghost"
	}
	return home + "/.local/share/zghost"
}

// LoadConfig reads zghost.yaml from dir, applies environment
// overrides, and validates the result.
func LoadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir + "/" + config.FileName)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadPassphrase prompts on w and reads a line without echo.
func ReadPassphrase(prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}

// ReadNewPassphrase prompts for a new passphrase with confirmation.
func ReadNewPassphrase(w io.Writer) (string, error) {
	pass, err := ReadPassphrase("vault passphrase: ", w)
	if err != nil {
		return "", err
	}
	confirm, err := ReadPassphrase("confirm passphrase: ", w)
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", errors.New("passphrases do not match")
	}
	return pass, nil
}

// IsFirstRun reports whether the vault has ever been opened in dir.
func IsFirstRun(dir string) bool {
	_, err := os.Stat(dir + "/salt")
	return err != nil
}

// OpenVault unlocks the vault under dir. The key comes from
// ZGHOST_PASSPHRASE, an interactive prompt when ZGHOST_NO_KEYFILE is
// set, or the keyfile (created on first use).
func OpenVault(dir string, historyLimit int) (*vault.Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	fsys := zfilesystem.NewOSFileSystem(dir)

	key, err := vaultKey(dir, fsys)
	if err != nil {
		return nil, err
	}
	return vault.Open(fsys, key, historyLimit)
}

func vaultKey(dir string, fsys zfilesystem.ReadWriteFileFS) ([]byte, error) {
	if pass := os.Getenv("ZGHOST_PASSPHRASE"); pass != "" {
		return []byte(pass), nil
	}
	if os.Getenv("ZGHOST_NO_KEYFILE") != "" {
		var pass string
		var err error
		if IsFirstRun(dir) {
			pass, err = ReadNewPassphrase(os.Stderr)
		} else {
			pass, err = ReadPassphrase("vault passphrase: ", os.Stderr)
		}
		if err != nil {
			return nil, err
		}
		return []byte(pass), nil
	}
	return vault.LoadOrCreateKey(fsys)
}

// RunGenerate mints a fresh identity and makes it current. The
// previous identity, if any, retires to history.
func RunGenerate(ctx context.Context, v *vault.Vault, domain string) (identity.Record, error) {
	s, _ := v.Settings()
	rec := persona.New(identity.New()).Record(ctx, s, domain)
	if !rec.Valid() {
		return identity.Record{}, errors.New("generated an unusable identity")
	}
	if err := v.SetCurrentEmail(rec); err != nil {
		return identity.Record{}, err
	}
	return rec, nil
}

// RunIngest extracts the best one-time code from text and stores it
// as the latest. A non-empty from is checked against the allow-list.
func RunIngest(cfg *config.Config, v *vault.Vault, from, text string) (codes.Code, error) {
	if from != "" && !cfg.AllowsSender(from) {
		return codes.Code{}, fmt.Errorf("sender %q is not on the allow list", from)
	}
	code, ok := codes.Best(text)
	if !ok {
		return codes.Code{}, errors.New("no verification code found")
	}
	if err := v.SetLatestCode(code); err != nil {
		return codes.Code{}, err
	}
	return code, nil
}

// RunSetKey writes the LLM API key, preserving the other settings
// fields already stored.
func RunSetKey(v *vault.Vault, key string) (vault.Settings, error) {
	s, _ := v.Settings()
	s.LLMAPIKey = strings.TrimSpace(key)
	if err := v.SetSettings(s); err != nil {
		return vault.Settings{}, err
	}
	return s, nil
}

// CmdEmail prints the current address.
func CmdEmail(args []string) {
	_, v := mustOpen()
	defer v.Close()

	rec, ok := v.CurrentEmail()
	if !ok {
		fmt.Fprintln(os.Stderr, "zghost: no identity yet; run zghost generate")
		os.Exit(1)
	}

	if hasFlag(args, "--json") {
		printJSON(rec)
		return
	}
	fmt.Println(rec.FullEmail)
}

// CmdGenerate mints and prints a fresh identity headlessly.
func CmdGenerate(ctx context.Context, args []string) {
	cfg, v := mustOpen()
	defer v.Close()

	rec, err := RunGenerate(ctx, v, cfg.Identity.Domain)
	if err != nil {
		fatal(err)
	}

	if hasFlag(args, "--json") {
		printJSON(rec)
		return
	}
	printRecord(rec)
}

// CmdHistory lists retired identities, or clears them.
func CmdHistory(args []string) {
	_, v := mustOpen()
	defer v.Close()

	if hasFlag(args, "--clear") {
		if err := v.ClearHistory(); err != nil {
			fatal(err)
		}
		fmt.Println("history cleared")
		return
	}

	entries, err := v.History()
	if err != nil {
		fatal(err)
	}

	if hasFlag(args, "--json") {
		printJSON(entries)
		return
	}

	if len(entries) == 0 {
		fmt.Println("no retired identities")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-30s retired %s\n", e.Record.FullEmail, e.RetiredAt.Format("2006-01-02 15:04"))
	}
}

// CmdIngest reads a message from stdin and stores its best code.
func CmdIngest(args []string) {
	cfg, v := mustOpen()
	defer v.Close()

	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal(fmt.Errorf("read stdin: %w", err))
	}

	code, err := RunIngest(cfg, v, flagValue(args, "--from"), string(text))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("captured %s code %s\n", code.Kind, code.Value)
}

// CmdSettings writes the LLM API key headlessly. --set-key - reads
// the key from stdin so it stays out of shell history.
func CmdSettings(args []string) {
	key := flagValue(args, "--set-key")
	if key == "" {
		fmt.Fprintln(os.Stderr, "usage: zghost settings --set-key KEY")
		os.Exit(1)
	}
	if key == "-" {
		var err error
		key, err = readSecret()
		if err != nil {
			fatal(err)
		}
	}

	_, v := mustOpen()
	defer v.Close()

	s, err := RunSetKey(v, key)
	if err != nil {
		fatal(err)
	}
	if s.LLMConfigured() {
		fmt.Fprintln(os.Stderr, "key saved")
	} else {
		fmt.Fprintln(os.Stderr, "key saved, but it looks too short to unlock generation")
	}
}

// readSecret reads one secret from stdin: prompted without echo on a
// terminal, a plain read otherwise.
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		return ReadPassphrase("api key: ", os.Stderr)
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func mustOpen() (*config.Config, *vault.Vault) {
	dir := DataDir()
	cfg, err := LoadConfig(dir)
	if err != nil {
		fatal(err)
	}
	v, err := OpenVault(dir, cfg.History.Limit)
	if err != nil {
		fatal(err)
	}
	return cfg, v
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "zghost: %v\n", err)
	os.Exit(1)
}

func printRecord(rec identity.Record) {
	fmt.Printf("  email:    %s\n", rec.FullEmail)
	fmt.Printf("  password: %s\n", rec.Password)
	fmt.Printf("  totp:     %s\n", rec.TOTPSecret)
	if rec.Persona != "" {
		fmt.Printf("  persona:  %s\n", rec.Persona)
	}
	fmt.Printf("  created:  %s\n", rec.CreatedAt.Format(time.RFC3339))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "zghost: encode json: %v\n", err)
		os.Exit(1)
	}
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}

// flagValue returns the value following flag, accepting both
// "--flag value" and "--flag=value". Absent flags yield "".
func flagValue(args []string, flag string) string {
	for i, a := range args {
		if strings.EqualFold(a, flag) && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v
		}
	}
	return ""
}
