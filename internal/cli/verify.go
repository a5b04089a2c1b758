package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Davincible/sss/internal/validation"
	"github.com/Davincible/sss/pkg/crypto/sss"
)

// ShareStatus reports whether one share belongs to a public key.
type ShareStatus struct {
	Share    int    `json:"share"`
	Position string `json:"position,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

func NewVerifyCommand() *cobra.Command {
	var keys keySource

	cmd := &cobra.Command{
		Use:   "verify <share...>",
		Short: "Check that shares belong to a public key",
		Long: `Verify that each share decodes and was issued for the given public key.
This does not recover the secret and needs no threshold of shares.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, _, err := keys.load(loadConfig(), newPrompter(cmd))
			if err != nil {
				return err
			}

			statuses := verifyShares(pub, args)

			invalid := 0
			for _, s := range statuses {
				if !s.Valid {
					invalid++
				}
			}

			if jsonOutput(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), statuses); err != nil {
					return err
				}
			} else {
				printVerifyResult(cmd.OutOrStdout(), statuses)
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d shares do not belong to this key", invalid, len(statuses))
			}
			return nil
		},
	}

	keys.addFlags(cmd)
	return cmd
}

func verifyShares(pub *sss.PublicKey, encoded []string) []ShareStatus {
	statuses := make([]ShareStatus, len(encoded))
	for i, e := range encoded {
		statuses[i].Share = i + 1

		data, err := validation.DecodeShare(e)
		if err != nil {
			statuses[i].Error = err.Error()
			continue
		}
		share, err := sss.ParseShare(data)
		if err != nil {
			statuses[i].Error = err.Error()
			continue
		}

		statuses[i].Position = share.Position().String()
		statuses[i].Valid = pub.Contains(share)
		if !statuses[i].Valid {
			statuses[i].Error = sss.ErrUnauthorizedShare.Error()
		}
		share.Destroy()
	}
	return statuses
}

func printVerifyResult(w io.Writer, statuses []ShareStatus) {
	fmt.Fprintln(w)
	for _, s := range statuses {
		if s.Valid {
			green.Fprintf(w, "✓ Share %d (x=%s) belongs to this key\n", s.Share, s.Position)
		} else {
			red.Fprintf(w, "✗ Share %d: %s\n", s.Share, s.Error)
		}
	}
}
