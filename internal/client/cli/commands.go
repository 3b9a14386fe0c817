package cli

import (
	"fmt"

	"github.com/dmitrijs2005/hrkeeper/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) RootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "hrctl",
		Short:        "Command-line client for the hrkeeper identity service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			return a.init(cmd.Context(), opts, flags.Changed("address"), flags.Changed("timeout"))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "path to JSON config file")
	pf.StringVarP(&opts.address, "address", "a", "", "address and port of the server")
	pf.DurationVarP(&opts.timeout, "timeout", "t", 0, "request timeout")

	root.AddCommand(
		a.registerCommand(),
		a.verifyCommand(),
		a.resendCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.meCommand(),
		a.resetRequestCommand(),
		a.resetCheckCommand(),
		a.resetCommand(),
		a.changePasswordCommand(),
	)

	return root
}

func (a *App) registerCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create an identity; a verification code is sent to the email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GetNewPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			id, status, err := a.client.Register(cmd.Context(), args[0], args[1], pw, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s (%s). Check your email for the verification code.\n", id, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role: user, manager or admin")
	return cmd
}

func (a *App) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <username> [code]",
		Short: "Activate an identity with its verification code",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.argOrPrompt(args, 1, "Verification code")
			if err != nil {
				return err
			}
			if err := a.client.Verify(cmd.Context(), args[0], code); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Verified. You can log in now.")
			return nil
		},
	}
}

func (a *App) resendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resend <username>",
		Short: "Send a new verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.ResendVerification(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "A new verification code has been sent.")
			return nil
		},
	}
}

func (a *App) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GetPassword(a.out, "Password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			token, err := a.client.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			if err := a.sessions.Save(cmd.Context(), args[0], token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s.\n", args[0])
			return nil
		},
	}
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *App) meCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "ID:       %s\nUsername: %s\nEmail:    %s\nRole:     %s\nStatus:   %s\n",
				me.IdentityID, me.Username, me.Email, me.Role, me.Status)
			return nil
		},
	}
}

func (a *App) resetRequestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-request <username>",
		Short: "Ask for a password reset token by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.RequestPasswordReset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "If the account exists, a reset token has been sent.")
			return nil
		},
	}
}

func (a *App) resetCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-check <username> [token]",
		Short: "Check a password reset token without using it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.argOrPrompt(args, 1, "Reset token")
			if err != nil {
				return err
			}
			if err := a.client.CheckPasswordReset(cmd.Context(), args[0], token); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Token is valid.")
			return nil
		},
	}
}

func (a *App) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <username> [token]",
		Short: "Set a new password with a reset token",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.argOrPrompt(args, 1, "Reset token")
			if err != nil {
				return err
			}
			pw, err := GetNewPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			if err := a.client.ResetPassword(cmd.Context(), args[0], token, pw); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Password changed. Log in with the new password.")
			return nil
		},
	}
}

func (a *App) changePasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the logged-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			old, err := GetPassword(a.out, "Current password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(old)

			pw, err := GetNewPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			if err := a.client.ChangePassword(cmd.Context(), old, pw); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Password changed.")
			return nil
		},
	}
}

// argOrPrompt returns args[i] when present and asks for it otherwise.
func (a *App) argOrPrompt(args []string, i int, prompt string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	return GetSimpleText(a.in, prompt, a.out)
}
