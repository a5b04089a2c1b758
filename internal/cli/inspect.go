package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// KeyInfo describes a public key and, when read from one, its bundle.
type KeyInfo struct {
	Threshold   int        `json:"threshold"`
	Total       int        `json:"total"`
	ModulusBits uint32     `json:"modulus_bits"`
	Fingerprint string     `json:"fingerprint"`
	Bound       bool       `json:"bound"`
	ShareHashes int        `json:"share_hashes"`
	BundleID    string     `json:"bundle_id,omitempty"`
	Created     *time.Time `json:"created,omitempty"`
	Shares      int        `json:"bundled_shares,omitempty"`
}

func NewInspectCommand() *cobra.Command {
	var keys keySource

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the parameters of a public key or bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, bundle, err := keys.load(loadConfig(), newPrompter(cmd))
			if err != nil {
				return err
			}

			info := KeyInfo{
				Threshold:   pub.N(),
				Total:       pub.M(),
				ModulusBits: uint32(pub.Size()),
				Fingerprint: pub.Fingerprint(),
				Bound:       pub.Bound(),
				ShareHashes: len(pub.Hashes()),
			}
			if bundle != nil {
				created := bundle.Created
				info.BundleID = bundle.ID.String()
				info.Created = &created
				info.Shares = len(bundle.Shares)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			printKeyInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	keys.addFlags(cmd)
	return cmd
}

func printKeyInfo(w io.Writer, info KeyInfo) {
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Public key:")
	fmt.Fprintf(w, "  Threshold:    %d of %d\n", info.Threshold, info.Total)
	fmt.Fprintf(w, "  Modulus:      %d bits\n", info.ModulusBits)
	fmt.Fprintf(w, "  Fingerprint:  %s\n", info.Fingerprint)
	fmt.Fprintf(w, "  Share hashes: %d\n", info.ShareHashes)
	if !info.Bound {
		red.Fprintln(w, "  Not bound to any shares, recovery will reject every share")
	}

	if info.BundleID != "" {
		fmt.Fprintln(w)
		yellow.Fprintln(w, "Bundle:")
		fmt.Fprintf(w, "  Session: %s\n", info.BundleID)
		fmt.Fprintf(w, "  Created: %s\n", info.Created.Format(time.RFC3339))
		fmt.Fprintf(w, "  Shares:  %d\n", info.Shares)
	}
}
