package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/auditorium-netlock/internal/client"
	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/reconciler"
)

var (
	apiURL   string
	apiToken string
)

var rootCMD = &cobra.Command{
	Use:           "netlockctl",
	Short:         "Control auditorium network locks",
	Long:          `netlockctl talks to the netlock API to show room status and to disable or enable a room's network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		if !cmd.Flags().Changed("url") {
			if v := os.Getenv("NETLOCK_URL"); v != "" {
				apiURL = v
			}
		}
		if !cmd.Flags().Changed("token") {
			apiToken = os.Getenv("NETLOCK_TOKEN")
		}
	},
}

func init() {
	rootCMD.PersistentFlags().StringVar(&apiURL, "url", "http://localhost:8080", "API base URL (env NETLOCK_URL)")
	rootCMD.PersistentFlags().StringVar(&apiToken, "token", "", "bearer access token (env NETLOCK_TOKEN)")
}

func newClient() *client.Client {
	return client.New(apiURL, apiToken)
}

// newReconciler returns a reconciler over the API with default timers.
func newReconciler(opts ...reconciler.Option) *reconciler.Reconciler {
	return reconciler.New(newClient(), reconciler.Config{}, opts...)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), client.DefaultTimeout+5*time.Second)
}

// explain turns API errors into an operator-facing hint.
func explain(err error) error {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return fmt.Errorf("%w (run `netlockctl login` and export NETLOCK_TOKEN)", err)
	case errors.Is(err, client.ErrForbidden):
		return fmt.Errorf("%w (an OPERATOR account is required)", err)
	}
	return err
}

func fail(cmd *cobra.Command, err error) error {
	err = explain(err)
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	return err
}
