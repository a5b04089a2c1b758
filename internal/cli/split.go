package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Davincible/sss/internal/validation"
	"github.com/Davincible/sss/pkg/config"
	"github.com/Davincible/sss/pkg/crypto/field"
	"github.com/Davincible/sss/pkg/crypto/mnemonic"
	"github.com/Davincible/sss/pkg/crypto/sss"
	"github.com/Davincible/sss/pkg/secure"
	"github.com/Davincible/sss/pkg/storage"
)

// SplitResult is what split prints: the session id, the public key and every
// share, each hex encoded.
type SplitResult struct {
	ID          string   `json:"id"`
	Threshold   int      `json:"threshold"`
	Total       int      `json:"total"`
	ModulusBits uint32   `json:"modulus_bits"`
	Fingerprint string   `json:"fingerprint"`
	PublicKey   string   `json:"public_key"`
	Shares      []string `json:"shares"`
	Bundle      string   `json:"bundle,omitempty"`
	Sealed      bool     `json:"sealed,omitempty"`
}

type splitOptions struct {
	params       config.SplitParams
	outputFile   string
	seal         bool
	passwordFile string
}

func (o *splitOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.params.Shares, "shares", "n", 0, "Total number of shares to create (default from config)")
	cmd.Flags().IntVarP(&o.params.Threshold, "threshold", "t", 0, "Minimum shares needed to recover (default from config)")
	cmd.Flags().IntVarP(&o.params.ModulusBits, "modulus-bits", "m", 0,
		fmt.Sprintf("Prime size in bits, one of %v (default from config)", field.AllowedSizes))
	cmd.Flags().StringVarP(&o.outputFile, "output", "o", "", "Write a bundle with the public key and all shares")
	cmd.Flags().BoolVar(&o.seal, "seal", false, "Seal the bundle with a password")
	cmd.Flags().StringVar(&o.passwordFile, "password-file", "", "Read the bundle password from a file instead of prompting")
}

func NewSplitCommand() *cobra.Command {
	var (
		opts         splitOptions
		useStdin     bool
		hexInput     bool
		fromMnemonic bool
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a secret into shares",
		Long: `Split a secret into shares. Any threshold number of shares recovers
the secret together with the public key printed alongside them.

A secret can be at most modulus-bits/8 - 2 bytes long: 126 bytes for a
1024-bit prime, 254 bytes for 2048 bits.

The public key is not secret, but it is required for recovery. Keep a copy
with every share or write a bundle with --output.`,
		Example: `  # Split a secret into 5 shares, any 3 recover it
  sss split --shares 5 --threshold 3

  # Split hex data from stdin with a 4096-bit prime
  echo deadbeef | sss split --stdin --hex -n 3 -t 2 -m 4096

  # Split a BIP-39 phrase and write a sealed bundle
  sss split --mnemonic --output wallet.json --seal

  # Seal a bundle while the secret comes from stdin
  cat key.bin | sss split --stdin --output key.json --seal --password-file pw.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := loadConfig()
			cm.ApplyDefaults(&opts.params)
			if err := validation.ValidateSplitParams(opts.params.Shares, opts.params.Threshold, opts.params.ModulusBits); err != nil {
				return err
			}

			p := newPrompter(cmd)

			var (
				secret []byte
				err    error
			)
			switch {
			case fromMnemonic:
				secret, err = readMnemonicSecret(p)
			case useStdin:
				secret, err = readStdinSecret(p, hexInput)
			default:
				secret, err = readSecretInteractive(p, hexInput)
			}
			if err != nil {
				return fmt.Errorf("failed to read secret: %w", err)
			}
			defer secure.Zero(secret)

			return runSplit(cmd, cm, p, &opts, secret)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read secret from stdin")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "Secret is hex encoded")
	cmd.Flags().BoolVar(&fromMnemonic, "mnemonic", false, "Secret is a BIP-39 mnemonic phrase")

	return cmd
}

// runSplit encrypts secret under a fresh key and prints or stores the result.
func runSplit(cmd *cobra.Command, cm *config.ConfigManager, p *prompter, opts *splitOptions, secret []byte) error {
	if err := validation.ValidateSplitParams(opts.params.Shares, opts.params.Threshold, opts.params.ModulusBits); err != nil {
		return err
	}
	if err := validation.ValidateSecretSize(len(secret), opts.params.ModulusBits); err != nil {
		return err
	}

	cfg := cm.GetConfig()
	if opts.seal && opts.outputFile == "" {
		return fmt.Errorf("--seal needs --output")
	}
	seal := opts.seal || (cfg.Security.SealFiles && opts.outputFile != "")

	var password []byte
	if seal {
		var err error
		if password, err = p.readNewPassword(cfg.Security.MinPasswordLength, opts.passwordFile); err != nil {
			return err
		}
		defer secure.Zero(password)
		opts.params.Password = string(password)
	}
	if opts.outputFile != "" {
		if err := cm.ValidateParams(&opts.params); err != nil {
			return err
		}
	}

	size, _ := field.ParseModulusSize(opts.params.ModulusBits)
	slog.Debug("Generating prime", "bits", opts.params.ModulusBits)

	engine, err := sss.New(opts.params.Threshold, opts.params.Shares, size, sss.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to create public key: %w", err)
	}

	res, err := engine.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("failed to split secret: %w", err)
	}
	defer destroyShares(res.Shares)

	bundle, err := storage.NewBundle(res)
	if err != nil {
		return err
	}

	result := SplitResult{
		ID:          bundle.ID.String(),
		Threshold:   bundle.Threshold,
		Total:       bundle.Total,
		ModulusBits: bundle.ModulusBits,
		Fingerprint: res.PublicKey.Fingerprint(),
		PublicKey:   hex.EncodeToString(bundle.PublicKey),
		Shares:      make([]string, len(bundle.Shares)),
	}
	for i, s := range bundle.Shares {
		result.Shares[i] = hex.EncodeToString(s)
	}

	if opts.outputFile != "" {
		path, err := cfg.BundlePath(opts.outputFile)
		if err != nil {
			return err
		}
		perm, err := cfg.FileMode()
		if err != nil {
			return err
		}
		storeOpts, err := cfg.StorageOptions()
		if err != nil {
			return err
		}
		if err := storage.NewBundleStore(path, perm, storeOpts...).Save(bundle, password); err != nil {
			return fmt.Errorf("failed to save bundle: %w", err)
		}
		result.Bundle = path
		result.Sealed = seal
	}

	if jsonOutput(cmd) {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printSplitResult(cmd.OutOrStdout(), result)
	return nil
}

func readSecretInteractive(p *prompter, hexInput bool) ([]byte, error) {
	secret, err := p.readHidden("Enter your secret: ")
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	if !hexInput {
		return secret, nil
	}
	defer secure.Zero(secret)
	return validation.DecodeHex(string(secret))
}

func readStdinSecret(p *prompter, hexInput bool) ([]byte, error) {
	data, err := p.readAll()
	if err != nil {
		return nil, err
	}
	if hexInput {
		defer secure.Zero(data)
		return validation.DecodeHex(string(data))
	}
	// a single trailing line break comes from echo, not from the secret
	return trimLineBreak(data), nil
}

func readMnemonicSecret(p *prompter) ([]byte, error) {
	words, err := p.readHidden("Enter your mnemonic phrase (12-24 words): ")
	if err != nil {
		return nil, err
	}
	defer secure.Zero(words)

	phrase := mnemonic.Normalize(string(words))
	if err := validation.ValidateMnemonic(phrase); err != nil {
		return nil, err
	}
	return mnemonic.Decode(phrase)
}

func printSplitResult(w io.Writer, result SplitResult) {
	fmt.Fprintln(w)
	yellow.Fprintln(w, "=== SECRET SHARES ===")
	fmt.Fprintln(w)

	green.Fprintf(w, "Created %d shares with threshold %d\n", result.Total, result.Threshold)
	fmt.Fprintf(w, "Any %d shares together with the public key recover the secret\n\n", result.Threshold)

	fmt.Fprintf(w, "Session:     %s\n", result.ID)
	fmt.Fprintf(w, "Modulus:     %d bits\n", result.ModulusBits)
	fmt.Fprintf(w, "Fingerprint: %s\n\n", result.Fingerprint)

	cyan.Fprintln(w, "Public key:")
	fmt.Fprintln(w, result.PublicKey)
	fmt.Fprintln(w)

	red.Fprintln(w, "SECURITY WARNING:")
	fmt.Fprintln(w, "- Store each share in a different secure location")
	fmt.Fprintln(w, "- Never store the threshold number of shares together")
	fmt.Fprintln(w)

	for i, share := range result.Shares {
		cyan.Fprintf(w, "Share %d of %d:\n", i+1, result.Total)
		fmt.Fprintln(w, share)
		fmt.Fprintln(w)
	}

	if result.Bundle != "" {
		if result.Sealed {
			green.Fprintf(w, "Sealed bundle written to %s\n", result.Bundle)
		} else {
			green.Fprintf(w, "Bundle written to %s\n", result.Bundle)
		}
	}
	yellow.Fprintln(w, "=== END OF SHARES ===")
}
