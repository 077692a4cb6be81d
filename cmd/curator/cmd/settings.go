package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-curation-client/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// settingSetters maps each persisted key to a function applying a string value.
var settingSetters = map[string]func(*config.Settings, string) error{
	"serverUrl":            func(s *config.Settings, v string) error { s.ServerURL = v; return nil },
	"rateLimitBypassToken": func(s *config.Settings, v string) error { s.RateLimitBypassToken = v; return nil },
	"discordApplicationId": func(s *config.Settings, v string) error { s.DiscordApplicationID = v; return nil },
	"redirectUri":          func(s *config.Settings, v string) error { s.RedirectURI = v; return nil },
	"minRefreshSeconds":    intSetter(func(s *config.Settings, n int) { s.MinRefreshSeconds = n }),
	"maxRefreshMinutes":    intSetter(func(s *config.Settings, n int) { s.MaxRefreshMinutes = n }),
}

func intSetter(set func(*config.Settings, int)) func(*config.Settings, string) error {
	return func(s *config.Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", v)
		}
		set(s, n)
		return nil
	}
}

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the client settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSettings(cmd, a.settings.Get())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key>=<value>...",
		Short: "Change one or more settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type change struct {
				set   func(*config.Settings, string) error
				value string
			}
			changes := make([]change, 0, len(args))
			scratch := a.settings.Get()
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				set, known := settingSetters[key]
				if !ok || !known {
					return errors.Errorf("expected <key>=<value> with key one of %s, got %q", settingKeys(), arg)
				}
				if err := set(&scratch, value); err != nil {
					return errors.Wrap(err, key)
				}
				changes = append(changes, change{set: set, value: value})
			}

			// Values parsed above, so the setters cannot fail here.
			updated, err := a.settings.Update(func(s *config.Settings) {
				for _, c := range changes {
					_ = c.set(s, c.value)
				}
			})
			if err != nil {
				return err
			}
			return printSettings(cmd, updated)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			updated, err := a.settings.Reset()
			if err != nil {
				return err
			}
			return printSettings(cmd, updated)
		},
	})
	return cmd
}

func settingKeys() string {
	return "serverUrl, rateLimitBypassToken, discordApplicationId, redirectUri, minRefreshSeconds, maxRefreshMinutes"
}

func printSettings(cmd *cobra.Command, s config.Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
