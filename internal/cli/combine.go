package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/Davincible/sss/pkg/crypto/mnemonic"
	"github.com/Davincible/sss/pkg/crypto/sss"
	"github.com/Davincible/sss/pkg/secure"
)

// CombineResult is what combine prints with --json.
type CombineResult struct {
	Hex      string `json:"hex"`
	Text     string `json:"text,omitempty"`
	Mnemonic string `json:"mnemonic,omitempty"`
	Size     int    `json:"size"`
}

// NewCombineCommand creates the combine command
func NewCombineCommand() *cobra.Command {
	var (
		keys         keySource
		inputFile    string
		outputHex    bool
		outputText   bool
		outputPhrase bool
	)

	cmd := &cobra.Command{
		Use:   "combine [share...]",
		Short: "Combine shares to recover a secret",
		Long: `Combine at least the threshold number of shares to recover the secret.

Shares are hex strings as printed by split. They can be given as arguments,
read from a file with one share per line, or entered one per line on stdin
(finish with an empty line). Only the first threshold shares are used.

With --bundle and no shares, the shares stored in the bundle are used.`,
		Example: `  # Combine shares given as arguments
  sss combine --key <public key> <share1> <share2> <share3>

  # Combine shares listed in a file
  sss combine --key <public key> --input shares.txt

  # Recover a BIP-39 phrase from a bundle
  sss combine --bundle wallet.json --mnemonic`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm := loadConfig()
			p := newPrompter(cmd)

			pub, bundle, err := keys.load(cm, p)
			if err != nil {
				return err
			}

			var shares []*sss.Share
			switch {
			case len(args) > 0:
				shares, err = parseShares(args)
			case inputFile != "":
				var encoded []string
				if encoded, err = readSharesFile(inputFile); err == nil {
					shares, err = parseShares(encoded)
				}
			case bundle != nil:
				shares, err = bundle.DecodeShares()
			default:
				var encoded []string
				prompt := fmt.Sprintf("Enter at least %d shares, one per line, then an empty line:", pub.N())
				if encoded, err = p.readLines(prompt); err == nil {
					shares, err = parseShares(encoded)
				}
			}
			if err != nil {
				return err
			}
			defer destroyShares(shares)

			secret, err := sss.Decrypt(pub, shares)
			if err != nil {
				return fmt.Errorf("failed to recover secret: %w", err)
			}
			defer secure.Zero(secret)

			result := CombineResult{
				Hex:  hex.EncodeToString(secret),
				Size: len(secret),
			}
			if outputText || (!outputHex && !outputPhrase && utf8.Valid(secret)) {
				result.Text = string(secret)
			}
			if outputPhrase {
				if result.Mnemonic, err = mnemonic.Encode(secret); err != nil {
					return fmt.Errorf("secret has no mnemonic form: %w", err)
				}
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printCombineResult(cmd.OutOrStdout(), result, outputHex, outputText, outputPhrase)
			return nil
		},
	}

	keys.addFlags(cmd)
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "File with one share per line")
	cmd.Flags().BoolVar(&outputHex, "hex", false, "Output only as hexadecimal")
	cmd.Flags().BoolVar(&outputText, "text", false, "Output only as text")
	cmd.Flags().BoolVar(&outputPhrase, "mnemonic", false, "Output as a BIP-39 mnemonic phrase")
	cmd.MarkFlagsMutuallyExclusive("hex", "text", "mnemonic")

	return cmd
}

func printCombineResult(w io.Writer, result CombineResult, onlyHex, onlyText, onlyPhrase bool) {
	switch {
	case onlyHex:
		fmt.Fprintln(w, result.Hex)
		return
	case onlyText:
		fmt.Fprintln(w, result.Text)
		return
	case onlyPhrase:
		fmt.Fprintln(w, result.Mnemonic)
		return
	}

	fmt.Fprintln(w)
	green.Fprintln(w, "Successfully recovered secret")
	fmt.Fprintln(w)

	cyan.Fprintln(w, "Secret:")
	fmt.Fprintf(w, "  Hex:  %s\n", result.Hex)
	if result.Text != "" {
		fmt.Fprintf(w, "  Text: %s\n", result.Text)
	}
	fmt.Fprintf(w, "  Size: %d bytes\n", result.Size)
}
