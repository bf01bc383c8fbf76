package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"dossier/internal/crypto"
	"dossier/internal/services/lifecycle"
)

// commit <file>: encrypt <file> to the configured ritual and record it.
func commitCmd() *cobra.Command {
	var (
		dossierID string
		interval  time.Duration
		threshold uint32
		guardians uint32
	)
	cmd := &cobra.Command{
		Use:   "commit <file>",
		Short: "Encrypt a file so it is released when check-ins stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePIN(); err != nil {
				return err
			}
			if err := requireCoordinator(); err != nil {
				return err
			}
			id, err := parseDossierID(dossierID)
			if err != nil {
				return err
			}
			state, err := lifecycle.NewState(time.Now(), interval, threshold, guardians)
			if err != nil {
				return err
			}

			key, err := appCtx.Custody.Unlock(pin)
			if err != nil {
				return err
			}
			owner := crypto.AddressOf(key)
			crypto.WipeSigningKey(key)

			ctx := cmd.Context()
			d, err := appCtx.Encryption.EncryptFile(ctx, args[0], owner, id, appCtx.Config.RitualID)
			if err != nil {
				return err
			}
			d.State = state
			if err := appCtx.Dossiers.SaveDossier(d); err != nil {
				return err
			}
			fmt.Printf("Dossier %s committed.\nCapsule: %s\nCheck in before: %s\n",
				d.ID, d.Capsule, state.ExpiresAt().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&dossierID, "id", "", "dossier identifier in the registry")
	cmd.Flags().DurationVar(&interval, "interval", 30*24*time.Hour, "check-in interval")
	cmd.Flags().Uint32Var(&guardians, "guardians", 0, "number of guardians (0 disables the guardian gate)")
	cmd.Flags().Uint32Var(&threshold, "guardian-threshold", 0, "guardian confirmations required after expiry")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// check-in <id>: restart the interval of a locally tracked dossier.
func checkInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-in <id>",
		Short: "Restart the check-in interval of a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDossierID(args[0])
			if err != nil {
				return err
			}
			owner, err := appCtx.Custody.Address()
			if err != nil {
				return err
			}
			d, ok, err := appCtx.Dossiers.LoadDossier(owner, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("dossier %s not found", id)
			}
			d.State = lifecycle.CheckIn(d.State, time.Now())
			if err := appCtx.Dossiers.SaveDossier(d); err != nil {
				return err
			}
			fmt.Printf("Checked in. Next deadline: %s\n", d.State.ExpiresAt().Format(time.RFC3339))
			return nil
		},
	}
}

// confirm <id>: record a guardian confirmation on a locally tracked dossier.
func confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <id>",
		Short: "Record a guardian confirmation for an expired dossier",
		Long: "Record a guardian confirmation for a dossier tracked on this device.\n" +
			"With --guardian-ledger set, confirmations are read from the registry instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if appCtx.Config.GuardianLedger != (common.Address{}) {
				return errors.New("confirmations are read from the guardian ledger; confirm on chain")
			}
			id, err := parseDossierID(args[0])
			if err != nil {
				return err
			}
			owner, err := appCtx.Custody.Address()
			if err != nil {
				return err
			}
			d, ok, err := appCtx.Dossiers.LoadDossier(owner, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("dossier %s not found", id)
			}
			d.State, err = lifecycle.Confirm(d.State)
			if err != nil {
				return err
			}
			if err := appCtx.Dossiers.SaveDossier(d); err != nil {
				return err
			}
			fmt.Printf("Confirmations: %d of %d (threshold %d)\n",
				d.State.GuardianConfirmations, d.State.GuardianTotal, d.State.GuardianThreshold)
			return nil
		},
	}
}
