package commands

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"dossier/internal/util/memzero"
)

// release <id>: decrypt a releasable dossier into --out.
func releaseCmd() *cobra.Command {
	var (
		out   string
		owner string
	)
	cmd := &cobra.Command{
		Use:   "release <id>",
		Short: "Decrypt a dossier whose release condition holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCoordinator(); err != nil {
				return err
			}
			id, err := parseDossierID(args[0])
			if err != nil {
				return err
			}

			var addr common.Address
			if owner != "" {
				if !common.IsHexAddress(owner) {
					return fmt.Errorf("--owner %q is not an address", owner)
				}
				addr = common.HexToAddress(owner)
			} else if addr, err = appCtx.Custody.Address(); err != nil {
				return err
			}

			d, ok, err := appCtx.Dossiers.LoadDossier(addr, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("dossier %s not found", id)
			}

			plaintext, err := appCtx.Decryption.Release(cmd.Context(), d)
			if err != nil {
				return err
			}
			defer memzero.Zero(plaintext)
			if err := os.WriteFile(out, plaintext, 0o600); err != nil {
				return err
			}
			fmt.Printf("Dossier %s released to %s\n", id, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write the plaintext to")
	cmd.Flags().StringVar(&owner, "owner", "", "owner address (default: this device)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
