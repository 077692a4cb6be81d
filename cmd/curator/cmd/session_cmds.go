package cmd

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-curation-client/api"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/jrsteele09/go-curation-client/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server and the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			s := a.settings.Get()
			fmt.Fprintf(w, "server:      %s\n", s.ServerURL)

			current := a.store.Current()
			printSession(w, current)
			if current != nil {
				next := session.RefreshDelay(*current, time.Now(), s.MinRefresh(), s.MaxRefresh())
				fmt.Fprintf(w, "refresh in:  %s\n", next.Round(time.Second))
			}
			return nil
		},
	}
}

func newLoginURLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login-url",
		Short: "Print the Discord authorize URL to start a login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.settings.Get().DiscordApplicationID == "" {
				return errors.New("discordApplicationId is not set, use: curator settings set discordApplicationId=<id>")
			}
			authURL, err := a.flow.Begin()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	}
}

func newLoginCommand(a *app) *cobra.Command {
	var callback, code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Complete a login with the URL Discord redirected to",
		Long: `Complete a login. --callback takes the full redirect URL and checks its
state against the one saved by login-url. --code sends an authorization code
directly, which is how development servers accept "dev-<name>" codes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (callback == "") == (code == "") {
				return errors.New("exactly one of --callback or --code is required")
			}
			if callback != "" {
				var err error
				if code, err = a.flow.CompleteURL(callback); err != nil {
					return err
				}
			}

			result, err := a.store.Login(cmd.Context(), code)
			if err != nil {
				return err
			}
			success, ok := result.(api.Success[api.SessionPayload])
			if !ok {
				return failure(api.OpLogin, result)
			}
			verb := "Logged in"
			if success.Data.Type == api.SessionTypeRegister {
				verb = "Registered"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", verb, success.Data.UserData.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&callback, "callback", "", "redirect URL carrying code and state")
	cmd.Flags().StringVar(&code, "code", "", "authorization code")
	return cmd
}

func newRefreshCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the site token for a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.store.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if result.Kind() != api.KindSuccess {
				return failure(api.OpRefresh, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed, expires %s\n", a.store.Current().ExpiresAt().Format(time.RFC3339))
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the site token and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.store.Logout(cmd.Context())
			if errors.Is(err, cerrors.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			if result.Kind() != api.KindSuccess {
				return failure(api.OpLogout, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
