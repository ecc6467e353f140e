package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/output"
	"github.com/marmos91/reportshare/internal/cli/timeutil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Display the backend, the signed-in user and when the session expires.

Examples:
  # Show session status
  rsctl status

  # Output as JSON
  rsctl status -o json`,
	RunE: runStatus,
}

// SessionStatus is the status report of the current context.
type SessionStatus struct {
	Server     string    `json:"server" yaml:"server"`
	Context    string    `json:"context,omitempty" yaml:"context,omitempty"`
	Backend    string    `json:"backend" yaml:"backend"`
	SignedIn   bool      `json:"signed_in" yaml:"signed_in"`
	UserID     string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	HealthID   string    `json:"health_id,omitempty" yaml:"health_id,omitempty"`
	ObtainedAt time.Time `json:"obtained_at,omitempty" yaml:"obtained_at,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired    bool      `json:"expired" yaml:"expired"`
}

// Pairs renders the status as key/value rows.
func (s SessionStatus) Pairs(now time.Time) [][2]string {
	pairs := [][2]string{
		{"Server", s.Server},
		{"Context", cmdutil.EmptyOr(s.Context, "-")},
		{"Session store", s.Backend},
	}
	if !s.SignedIn {
		return append(pairs, [2]string{"Signed in", "no"})
	}

	expiry := timeutil.FormatExpiry(s.ExpiresAt, now)
	return append(pairs,
		[2]string{"Signed in", cmdutil.BoolToYesNo(!s.Expired)},
		[2]string{"User", s.UserID},
		[2]string{"Health ID", cmdutil.EmptyOr(s.HealthID, "-")},
		[2]string{"Obtained", timeutil.Ago(s.ObtainedAt, now)},
		[2]string{"Expires", expiry},
	)
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.NewEnv(cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	now := time.Now()
	status := SessionStatus{
		Server:  env.ServerURL,
		Context: env.Credentials.GetCurrentContextName(),
		Backend: env.Config.Session.Backend,
	}

	sess, err := env.Runtime.Tokens().Load()
	if err != nil {
		return err
	}
	if sess != nil {
		status.SignedIn = true
		status.UserID = sess.UserID
		status.HealthID = sess.HealthID
		status.ObtainedAt = sess.ObtainedAt
		status.ExpiresAt = sess.ExpiresAt
		status.Expired = sess.Expired(now)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		return output.SimpleTable(os.Stdout, status.Pairs(now))
	}
}
