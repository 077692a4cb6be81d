// Package cmd provides the commands of the curator CLI.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/internal/config"
	"github.com/jrsteele09/go-curation-client/oauthflow"
	"github.com/jrsteele09/go-curation-client/session"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds the components every command works with. They are built once
// the persistent flags are parsed.
type app struct {
	cfg      config.Config
	files    config.DataFiles
	registry *prometheus.Registry
	settings *config.SettingsStore
	client   *api.Client
	store    *session.Store
	flow     *oauthflow.Flow
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// NewRootCommand builds the curator command tree.
func NewRootCommand() *cobra.Command {
	a := &app{cfg: config.New()}
	var (
		dataDir  string
		logLevel string
	)

	root := &cobra.Command{
		Use:   "curator",
		Short: "Log in to the curation API and manage the local session",
		Long: `curator keeps an authenticated session with the curation API.

Log in through Discord:
  1. curator login-url            print the Discord authorize URL
  2. open it, approve, copy the URL Discord redirects to
  3. curator login --callback '<redirect url>'

The session is refreshed with "curator refresh", or kept alive by
"curator watch" which refreshes it half way through each token lifetime.

Settings, the session and the pending login state live in the data folder
(--data, default $CURATOR_DATA or ./data). CURATOR_<KEY> environment
variables override persisted settings, e.g. CURATOR_SERVERURL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := configureLogging(cmd.ErrOrStderr(), logLevel); err != nil {
				return err
			}
			return a.init(dataDir)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			displayAppname(cmd.OutOrStdout(), a.cfg.GetAppName())
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "data", a.cfg.GetDataFolder(), "folder holding settings, session and login state")
	root.PersistentFlags().StringVar(&logLevel, "log-level", a.cfg.GetLogLevel(), "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newStatusCommand(a),
		newPingCommand(a),
		newProbeCommand(a),
		newLoginURLCommand(a),
		newLoginCommand(a),
		newRefreshCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newUserCommand(a),
		newUsersCommand(a),
		newGrantCommand(a),
		newWatchCommand(a),
		newSettingsCommand(a),
	)
	return root
}

func (a *app) init(dataDir string) error {
	a.files = config.DataFilesIn(dataDir)

	settings, err := config.LoadSettings(a.files.Settings)
	if err != nil {
		return errors.Wrap(err, "[init] load settings")
	}
	a.settings = settings

	a.registry = prometheus.NewRegistry()
	a.client = api.NewClient(settings, api.WithMetrics(api.NewMetrics(a.registry)))

	store, err := session.NewStore(a.client, session.NewFileRepo(a.files.Session), settings)
	if err != nil {
		return errors.Wrap(err, "[init] open session")
	}
	a.store = store
	a.flow = oauthflow.NewFlow(settings, oauthflow.NewFileStateRepo(a.files.LoginState))
	return nil
}

func configureLogging(w io.Writer, level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	if w == os.Stderr {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	return nil
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
