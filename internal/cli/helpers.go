package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Davincible/sss/internal/validation"
	"github.com/Davincible/sss/pkg/config"
	"github.com/Davincible/sss/pkg/crypto/sss"
	"github.com/Davincible/sss/pkg/secure"
	"github.com/Davincible/sss/pkg/storage"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
)

// prompter reads user input. Prompts go to stderr so that stdout stays
// machine readable.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
	// drained is set once readAll consumed the input
	drained bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	p := &prompter{
		in:  bufio.NewReader(cmd.InOrStdin()),
		out: cmd.ErrOrStderr(),
		fd:  -1,
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// readLine reads one line of visible input.
func (p *prompter) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(p.out, prompt)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readHidden reads one line without echo when stdin is a terminal.
func (p *prompter) readHidden(prompt string) ([]byte, error) {
	if !p.tty {
		line, err := p.readLine(prompt)
		return []byte(line), err
	}

	fmt.Fprint(p.out, prompt)
	data, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// readAll reads the remaining input verbatim.
func (p *prompter) readAll() ([]byte, error) {
	p.drained = true
	return io.ReadAll(p.in)
}

// readLines collects non-empty lines until an empty line or EOF.
func (p *prompter) readLines(prompt string) ([]string, error) {
	if prompt != "" {
		fmt.Fprintln(p.out, prompt)
	}

	var lines []string
	for {
		line, err := p.readLine("")
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// readNewPassword asks for a bundle password, twice on a terminal. With a
// password file the file is read instead.
func (p *prompter) readNewPassword(minLength int, passwordFile string) ([]byte, error) {
	var (
		pass []byte
		err  error
	)
	switch {
	case passwordFile != "":
		pass, err = readPasswordFile(passwordFile)
	case p.drained:
		return nil, errStdinPassword
	default:
		pass, err = p.readHidden("Enter bundle password: ")
	}
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(string(pass), minLength); err != nil {
		secure.Zero(pass)
		return nil, err
	}

	if p.tty && passwordFile == "" {
		confirm, err := p.readHidden("Confirm bundle password: ")
		if err != nil {
			secure.Zero(pass)
			return nil, err
		}
		defer secure.Zero(confirm)
		if !secure.ConstantTimeCompare(pass, confirm) {
			secure.Zero(pass)
			return nil, fmt.Errorf("passwords do not match")
		}
	}
	return pass, nil
}

// readPassword returns the password of a sealed bundle, from passwordFile
// when given.
func (p *prompter) readPassword(passwordFile string) ([]byte, error) {
	if passwordFile != "" {
		return readPasswordFile(passwordFile)
	}
	if p.drained {
		return nil, errStdinPassword
	}
	return p.readHidden("Enter bundle password: ")
}

var errStdinPassword = errors.New("stdin already holds the secret, pass the bundle password with --password-file")

// readPasswordFile reads a password file, dropping one trailing line break.
func readPasswordFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read password file: %w", err)
	}
	return trimLineBreak(data), nil
}

// trimLineBreak drops a single trailing "\n" or "\r\n".
func trimLineBreak(data []byte) []byte {
	n := len(data)
	if n > 0 && data[n-1] == '\n' {
		n--
		if n > 0 && data[n-1] == '\r' {
			n--
		}
	}
	return data[:n]
}

// loadConfig returns the user's configuration, falling back to the defaults
// when none can be read.
func loadConfig() *config.ConfigManager {
	cm, err := config.NewConfigManager()
	if err != nil {
		slog.Warn("Using default configuration", "error", err)
		cm = &config.ConfigManager{}
		cm.SetConfig(config.DefaultConfig())
	}
	return cm
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// keySource locates the public key for combine, verify and inspect.
type keySource struct {
	keyHex       string
	bundlePath   string
	passwordFile string
}

func (k *keySource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&k.keyHex, "key", "k", "", "Public key (hex)")
	cmd.Flags().StringVarP(&k.bundlePath, "bundle", "b", "", "Bundle file written by split")
	cmd.Flags().StringVar(&k.passwordFile, "password-file", "", "Read the bundle password from a file")
}

// load returns the key and, when read from a bundle, the bundle itself.
func (k *keySource) load(cm *config.ConfigManager, p *prompter) (*sss.PublicKey, *storage.Bundle, error) {
	switch {
	case k.keyHex != "" && k.bundlePath != "":
		return nil, nil, fmt.Errorf("use either --key or --bundle, not both")
	case k.keyHex != "":
		data, err := validation.DecodeHex(k.keyHex)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid public key: %w", err)
		}
		pub, err := sss.ParsePublicKey(data)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid public key: %w", err)
		}
		return pub, nil, nil
	case k.bundlePath != "":
		bundle, err := loadBundle(cm, k.bundlePath, p, k.passwordFile)
		if err != nil {
			return nil, nil, err
		}
		pub, err := bundle.Key()
		if err != nil {
			return nil, nil, err
		}
		return pub, bundle, nil
	default:
		return nil, nil, fmt.Errorf("a public key is required, use --key or --bundle")
	}
}

func loadBundle(cm *config.ConfigManager, name string, p *prompter, passwordFile string) (*storage.Bundle, error) {
	path, err := cm.GetConfig().BundlePath(name)
	if err != nil {
		return nil, err
	}

	store := storage.NewBundleStore(path, 0)
	sealed, err := store.Sealed()
	if err != nil {
		return nil, err
	}

	var password []byte
	if sealed {
		if password, err = p.readPassword(passwordFile); err != nil {
			return nil, err
		}
		defer secure.Zero(password)
	}

	bundle, err := store.Load(password)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle %s: %w", path, err)
	}
	return bundle, nil
}

func parseShares(encoded []string) ([]*sss.Share, error) {
	shares := make([]*sss.Share, 0, len(encoded))
	for i, s := range encoded {
		data, err := validation.DecodeShare(s)
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i+1, err)
		}
		share, err := sss.ParseShare(data)
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i+1, err)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

func readSharesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shares: %w", err)
	}

	var shares []string
	for _, line := range strings.Split(validation.SanitizeInput(string(data)), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			shares = append(shares, line)
		}
	}
	return shares, nil
}

func destroyShares(shares []*sss.Share) {
	for _, s := range shares {
		if s != nil {
			s.Destroy()
		}
	}
}
