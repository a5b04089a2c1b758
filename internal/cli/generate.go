package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Davincible/sss/pkg/crypto/mnemonic"
	"github.com/Davincible/sss/pkg/crypto/random"
	"github.com/Davincible/sss/pkg/secure"
)

// GenerateResult is what generate prints with --json.
type GenerateResult struct {
	Hex      string `json:"hex"`
	Mnemonic string `json:"mnemonic"`
	Checksum string `json:"checksum"`
}

func NewGenerateCommand() *cobra.Command {
	var (
		bits  int
		split bool
		opts  splitOptions
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random secret",
		Long: `Generate a random secret from the operating system's entropy source and
show it as hex and as a BIP-39 mnemonic phrase. With --split the secret is
split right away and only the shares are printed.`,
		Example: `  # Generate a 256-bit secret
  sss generate

  # Generate a 128-bit secret and split it into 3 shares, any 2 recover it
  sss generate --bits 128 --split -n 3 -t 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, words, err := mnemonic.Generate(random.Default, bits)
			if err != nil {
				return err
			}
			defer secure.Zero(secret)

			if split {
				cm := loadConfig()
				cm.ApplyDefaults(&opts.params)
				return runSplit(cmd, cm, newPrompter(cmd), &opts, secret)
			}

			checksum, err := mnemonic.Checksum(words)
			if err != nil {
				return err
			}

			result := GenerateResult{
				Hex:      hex.EncodeToString(secret),
				Mnemonic: words,
				Checksum: checksum,
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printGenerateResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().IntVar(&bits, "bits", 256, "Entropy bits: 128, 160, 192, 224 or 256")
	cmd.Flags().BoolVar(&split, "split", false, "Split the generated secret instead of printing it")
	opts.addFlags(cmd)

	return cmd
}

func printGenerateResult(w io.Writer, result GenerateResult) {
	fmt.Fprintln(w)
	yellow.Fprintln(w, "=== GENERATED SECRET ===")
	fmt.Fprintln(w)
	cyan.Fprintln(w, "Hex:")
	fmt.Fprintln(w, result.Hex)
	fmt.Fprintln(w)
	cyan.Fprintln(w, "Mnemonic:")
	fmt.Fprintln(w, result.Mnemonic)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Checksum: %s\n", result.Checksum)
	fmt.Fprintln(w)
	red.Fprintln(w, "Write this down and store it offline, it is shown only once.")
}
