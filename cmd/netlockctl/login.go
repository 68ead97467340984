package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCMD = &cobra.Command{
	Use:   "login",
	Short: "Exchange credentials for an access token",
	Long: `Log in and print the access token.  Export it to use the other commands:

  export NETLOCK_TOKEN=$(netlockctl login --email ops@example.com)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginPassword == "" {
			loginPassword = os.Getenv("NETLOCK_PASSWORD")
		}
		if loginEmail == "" || loginPassword == "" {
			return fail(cmd, errors.New("--email and --password (or NETLOCK_PASSWORD) are required"))
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		cl := newClient()
		tok, err := cl.Login(ctx, loginEmail, loginPassword)
		if err != nil {
			return fail(cmd, err)
		}
		if me, err := cl.Me(ctx); err == nil && !me.CanAct {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: %s is a %s and can only read status\n", me.Email, me.Role)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	loginCMD.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCMD.Flags().StringVar(&loginPassword, "password", "", "account password (env NETLOCK_PASSWORD)")
	rootCMD.AddCommand(loginCMD)
}
