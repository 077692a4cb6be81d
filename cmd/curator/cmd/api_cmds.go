package cmd

import (
	"fmt"

	"github.com/jrsteele09/go-curation-client/api"
	cerrors "github.com/jrsteele09/go-curation-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the API is reachable and print its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := a.client.Root(cmd.Context())
			success, ok := result.(api.Success[api.RootResponse])
			if !ok {
				return failure(api.OpRoot, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API %s up since %s, sees you as %s\n",
				success.Data.Version, success.Data.StartTime.Format("2006-01-02 15:04:05"), success.Data.ReceivedRequest.IP)
			return nil
		},
	}
}

func newProbeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [token]",
		Short: "Check a rate limit bypass token, by default the configured one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := a.settings.Get().RateLimitBypassToken
			if len(args) == 1 {
				token = args[0]
			}
			if token == "" {
				return errors.New("no bypass token given or configured")
			}

			result := a.client.ProbeRateLimitBypass(cmd.Context(), token)
			if result.Kind() != api.KindSuccess {
				return failure(api.OpRateLimitProbe, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "The rate limit bypass token is valid.")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current := a.store.Current()
			if current == nil {
				return cerrors.ErrNoSession
			}
			if !remote {
				printUser(cmd.OutOrStdout(), current.User)
				return nil
			}

			result := a.client.GetUser(cmd.Context(), current.User.ID, current.SiteToken)
			success, ok := result.(api.Success[api.User])
			if !ok {
				return failure(api.OpGetUser, result)
			}
			printUser(cmd.OutOrStdout(), success.Data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the profile from the API instead of the session")
	return cmd
}

func newUserCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Show a user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if current := a.store.Current(); current != nil {
				token = current.SiteToken
			}

			result := a.client.GetUser(cmd.Context(), args[0], token)
			success, ok := result.(api.Success[api.User])
			if !ok {
				return failure(api.OpGetUser, result)
			}
			printUser(cmd.OutOrStdout(), success.Data)
			return nil
		},
	}
}

func newGrantCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <id> <permissions>",
		Short: "Replace a user's permissions",
		Long: `Replace a user's permission bitmask. Permissions are a number or flag names
joined by "|" or ",": comment, submit, upload, audit, assign_permissions.
Requires the assign_permissions permission.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			permissions, err := api.ParsePermissions(args[1])
			if err != nil {
				return err
			}
			current := a.store.Current()
			if current == nil {
				return cerrors.ErrNoSession
			}

			result := a.client.UpdateUserPermissions(cmd.Context(), args[0], permissions, current.SiteToken)
			success, ok := result.(api.Success[api.User])
			if !ok {
				return failure(api.OpUpdateUserPermissions, result)
			}
			if success.Data.ID == current.User.ID {
				if err := a.store.UpdatePermissions(success.Data.Permissions); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %s\n", success.Data.Username, success.Data.Permissions)
			return nil
		},
	}
}

func newUsersCommand(a *app) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users, requires the assign_permissions permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current := a.store.Current()
			if current == nil {
				return cerrors.ErrNoSession
			}

			result := a.client.ListUsers(cmd.Context(), offset, limit, current.SiteToken)
			success, ok := result.(api.Success[[]api.User])
			if !ok {
				return failure(api.OpListUsers, result)
			}
			w := cmd.OutOrStdout()
			for _, u := range success.Data {
				fmt.Fprintf(w, "%-36s  %-20s  %s\n", u.ID, u.Username, u.Permissions)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "users to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size, 0 for the server default")
	return cmd
}
