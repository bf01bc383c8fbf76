package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dossier/internal/crypto"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the device signing key and protect it with a PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePIN(); err != nil {
				return err
			}
			addr, err := appCtx.Custody.Create(pin)
			if err != nil {
				return err
			}
			fmt.Printf("Key created.\nAddress: %s\nFingerprint: %s\n", addr.Hex(), crypto.AddressFingerprint(addr))
			return nil
		},
	}
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the device address",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := appCtx.Custody.Address()
			if err != nil {
				return err
			}
			fmt.Printf("Address: %s\nFingerprint: %s\n", addr.Hex(), crypto.AddressFingerprint(addr))
			return nil
		},
	}
}

func changePinCmd() *cobra.Command {
	var newPin string
	cmd := &cobra.Command{
		Use:   "change-pin",
		Short: "Re-wrap the signing key under a new PIN",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePIN(); err != nil {
				return err
			}
			if err := appCtx.Custody.ChangeSecret(pin, newPin); err != nil {
				return err
			}
			fmt.Println("PIN changed")
			return nil
		},
	}
	cmd.Flags().StringVar(&newPin, "new-pin", "", "the replacement 6-digit PIN")
	_ = cmd.MarkFlagRequired("new-pin")
	return cmd
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Destroy the key bundle on this device",
		Long: "Destroy the key bundle on this device. The signing key is lost;\n" +
			"dossiers already committed remain decryptable by the network once released.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if err := appCtx.Custody.Reset(); err != nil {
				return err
			}
			fmt.Println("key bundle removed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm destruction of the key bundle")
	return cmd
}
