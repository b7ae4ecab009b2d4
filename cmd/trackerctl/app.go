package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vibe-tracker/tracker-backend/internal/progress"
	"vibe-tracker/tracker-backend/pkg/apiclient"
	"vibe-tracker/tracker-backend/pkg/identity"
)

const envPrefix = "TRACKER"

var errNotSignedIn = errors.New("not signed in: run `trackerctl login` or set TRACKER_TOKEN")

// reportedError has already been printed to the user.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

type app struct {
	v        *viper.Viper
	in       *bufio.Reader
	out      io.Writer
	http     *http.Client
	now      func() time.Time
	theme    theme
	projects *progress.ProjectStore
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{
		v:        viper.New(),
		in:       bufio.NewReader(in),
		out:      out,
		http:     &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
		theme:    newTheme(out),
		projects: progress.NewProjectStore(),
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	return newApp(in, out).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trackerctl",
		Short: "Track progress through the vibe coding curriculum",
		Long: `trackerctl manages your projects, step progress, reminders and
exports against a progress tracker API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/vibetracker/trackerctl.yaml)")
	flags.String("api-url", "", "API base URL")
	flags.String("session", "", "session file path")
	flags.String("token", "", "bearer token to use instead of the stored session")
	_ = a.v.BindPFlag("config", flags.Lookup("config"))
	_ = a.v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = a.v.BindPFlag("session_path", flags.Lookup("session"))
	_ = a.v.BindPFlag("token", flags.Lookup("token"))

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.devTokenCmd(),
		a.projectsCmd(),
		a.stepCmd(),
		a.remindCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) initConfig() error {
	a.v.SetDefault("api_url", "http://localhost:8080")
	a.v.SetDefault("firebase_api_key", "")
	a.v.SetDefault("identity_url", identity.DefaultIdentityURL)
	a.v.SetDefault("token_url", identity.DefaultTokenURL)
	a.v.SetDefault("dev_secret", "")

	explicit := a.v.GetString("config")
	if explicit != "" {
		a.v.SetConfigFile(explicit)
	} else {
		a.v.SetConfigName("trackerctl")
		a.v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(dir, "vibetracker"))
		}
		a.v.AddConfigPath("$HOME/.config/vibetracker")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) store() (*identity.FileStore, error) {
	path := a.v.GetString("session_path")
	if path == "" {
		def, err := identity.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	return identity.NewFileStore(path), nil
}

func (a *app) identity() (*identity.Client, error) {
	key := a.v.GetString("firebase_api_key")
	if key == "" {
		return nil, errors.New("firebase_api_key is not configured")
	}
	return identity.NewClient(key,
		identity.WithIdentityURL(a.v.GetString("identity_url")),
		identity.WithTokenURL(a.v.GetString("token_url")),
		identity.WithHTTPClient(a.http),
	), nil
}

// tokens prefers an explicit token, then the stored session.
func (a *app) tokens() (apiclient.TokenSource, error) {
	if tok := a.v.GetString("token"); tok != "" {
		return apiclient.StaticToken(tok), nil
	}
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	sess, err := store.Load()
	if errors.Is(err, identity.ErrNoSession) {
		return nil, errNotSignedIn
	}
	if err != nil {
		return nil, err
	}
	idc, err := a.identity()
	if err != nil {
		return nil, err
	}
	return identity.NewTokenSource(idc, store, sess), nil
}

func (a *app) api() (*apiclient.Client, error) {
	ts, err := a.tokens()
	if err != nil {
		return nil, err
	}
	return apiclient.New(a.v.GetString("api_url"),
		apiclient.WithHTTPClient(a.http),
		apiclient.WithTokenSource(ts),
	), nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// prompt reads one line from stdin when value is empty.
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	a.printf("%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// describe turns client errors into one line for the terminal.
func describe(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message(), apiErr.StatusCode)
	}
	return err.Error()
}
