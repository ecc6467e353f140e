package commands

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/credentials"
	"github.com/marmos91/reportshare/internal/cli/output"
	"github.com/marmos91/reportshare/internal/cli/prompt"
	"github.com/marmos91/reportshare/internal/cli/timeutil"
)

var (
	loginServer   string
	loginUserID   string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the report-sharing backend",
	Long: `Sign in and store the session token.

The backend is taken from --server, then the current context, then the
settings file. The user id and password are prompted for when not given.

Examples:
  # Sign in to the configured backend
  rsctl login -u Niki002

  # Sign in to a specific backend
  rsctl login --server https://reports.example.com/api -u Niki002

  # Password on the command line (less secure)
  rsctl login -u Niki002 -p secret`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginServer, "server", "", "Backend REST root")
	loginCmd.Flags().StringVarP(&loginUserID, "user", "u", "", "User id")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password")
}

// loginResult is what login prints. The token itself is never shown.
type loginResult struct {
	Server    string    `json:"server" yaml:"server"`
	Context   string    `json:"context" yaml:"context"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	HealthID  string    `json:"health_id,omitempty" yaml:"health_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	current, _ := store.GetCurrentContext()

	flagServer := loginServer
	if flagServer == "" {
		flagServer = cmdutil.Flags.ServerURL
	}
	serverURL, err := normalizeServerURL(cmdutil.ResolveServerURL(flagServer, current, cfg.APIURL()))
	if err != nil {
		return err
	}

	userID := loginUserID
	if userID == "" {
		def := ""
		if current != nil && current.ServerURL == serverURL {
			def = current.UserID
		}
		if def != "" {
			userID, err = prompt.Input("User ID", def)
		} else {
			userID, err = prompt.InputRequired("User ID")
		}
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	password := loginPassword
	if password == "" {
		password, err = prompt.Password("Password")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	contextName := store.GetCurrentContextName()
	if current == nil || current.ServerURL != serverURL {
		contextName = credentials.GenerateContextName(serverURL)
	}
	if err := store.SetContext(contextName, &credentials.Context{ServerURL: serverURL, UserID: userID}); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	if err := store.UseContext(contextName); err != nil {
		return fmt.Errorf("failed to set current context: %w", err)
	}

	cmdutil.Flags.ServerURL = serverURL
	env, err := cmdutil.NewEnv(cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	sess, err := env.Runtime.Login(cmd.Context(), userID, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	result := loginResult{
		Server:    serverURL,
		Context:   contextName,
		UserID:    sess.UserID,
		HealthID:  sess.HealthID,
		ExpiresAt: sess.ExpiresAt,
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return cmdutil.PrintResourceWithSuccess(os.Stdout, result, "")
	}

	cmdutil.PrintSuccessWithInfo(
		fmt.Sprintf("Logged in as %s", sess.UserID),
		fmt.Sprintf("Context: %s", contextName),
		fmt.Sprintf("Session expires: %s", timeutil.FormatExpiry(sess.ExpiresAt, time.Now())),
	)
	return nil
}

// normalizeServerURL defaults a missing scheme to http.
func normalizeServerURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("no server URL configured\n\nSpecify one:\n  rsctl login --server http://localhost:3000/api")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
