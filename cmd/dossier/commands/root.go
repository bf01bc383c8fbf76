package commands

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"dossier/internal/app"
	"dossier/internal/domain"
)

var (
	pin    string
	appCtx *app.Wire
)

// Execute runs the CLI with the process arguments.
func Execute() error {
	return ExecuteArgs(context.Background(), os.Args[1:])
}

// ExecuteArgs runs the CLI with args and closes the dependency graph it
// built before returning.
func ExecuteArgs(ctx context.Context, args []string) error {
	appCtx = nil
	root := &cobra.Command{
		Use:           "dossier",
		Short:         "Threshold-encrypted dead man's switch",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			w, err := app.NewWire(cmd.Context(), cfg, app.NewLogger(cfg.LogLevel))
			if err != nil {
				return err
			}
			appCtx = w
			return nil
		},
	}

	app.BindFlags(root.PersistentFlags())
	root.PersistentFlags().StringVarP(&pin, "pin", "p", "", "6-digit PIN protecting the signing key")

	root.AddCommand(
		initCmd(),
		addressCmd(),
		changePinCmd(),
		resetCmd(),
		commitCmd(),
		checkInCmd(),
		confirmCmd(),
		statusCmd(),
		releaseCmd(),
	)

	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		report(err)
	}
	if appCtx != nil {
		_ = appCtx.Close()
	}
	return err
}

// report prints the failure class of err. Details stay in the debug log.
func report(err error) {
	kind := domain.KindOf(err)
	if appCtx == nil || kind == domain.KindInternal {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	appCtx.Log.Debug().Err(err).Msg("command failed")
	fmt.Fprintf(os.Stderr, "Error: %s\n", kind)
}

func requirePIN() error {
	if pin == "" {
		return errors.New("PIN required (-p)")
	}
	return nil
}

func requireCoordinator() error {
	if appCtx.Config.CoordinatorURL == "" {
		return errors.New("no coordination endpoint configured. use --coordinator-url")
	}
	return nil
}

func parseDossierID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("dossier id %q is not a non-negative integer", s)
	}
	return id, nil
}
