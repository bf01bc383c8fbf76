package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dossier/internal/domain"
)

// status [id]: evaluate one dossier, or every dossier owned by this device.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show the release status of your dossiers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := appCtx.Custody.Address()
			if err != nil {
				return err
			}

			var dossiers []domain.Dossier
			if len(args) == 1 {
				id, err := parseDossierID(args[0])
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
				dossiers = append(dossiers, d)
			} else {
				dossiers, err = appCtx.Dossiers.ListDossiers(owner)
				if err != nil {
					return err
				}
			}
			if len(dossiers) == 0 {
				fmt.Println("no dossiers")
				return nil
			}

			for _, d := range dossiers {
				ev, err := appCtx.Lifecycle.Evaluate(cmd.Context(), d)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\texpires %s", d.ID, ev.Status, ev.ExpiresAt.Format(time.RFC3339))
				if ev.Remaining > 0 {
					fmt.Printf(" (in %s)", ev.Remaining.Round(time.Second))
				}
				if ev.Status == domain.StatusAwaitingConfirmation {
					fmt.Printf("\t%d more guardian confirmation(s) needed", ev.ConfirmationsNeeded)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
