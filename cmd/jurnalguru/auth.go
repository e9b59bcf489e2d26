package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"jurnalguru/backup"
	"jurnalguru/internal/app"
	"jurnalguru/internal/credentials"
	"jurnalguru/internal/utils"
)

// newAuthCmd creates the auth command with all subcommands
func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Google Drive sign-in",
		Long: `Sign in to Google Drive so the journal is backed up automatically.

Tokens are kept in the system keyring. Without a keyring, set
JURNALGURU_ACCESS_TOKEN (and optionally JURNALGURU_REFRESH_TOKEN) instead.

Examples:
  jurnalguru auth login              # Paste an access token
  jurnalguru auth login --browser    # Authorization code flow (needs drive.client_id)
  jurnalguru auth status
  jurnalguru auth logout`,
	}
	authCmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthStatusCmd())
	return authCmd
}

// newAuthLoginCmd creates the 'auth login' command
func newAuthLoginCmd() *cobra.Command {
	var token, refresh string
	var browser, noRestore bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google Drive",
		Long: `Sign in to Google Drive.

After signing in on a device with an empty journal, the newest cloud backup
is offered for restore. Nothing is restored without confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var candidate *backup.Candidate
			if browser {
				if err := exchangeCode(ctx, a.Session()); err != nil {
					return fmt.Errorf("sign-in failed: %w", err)
				}
				if candidate, err = a.DiscoverRestore(ctx); err != nil {
					utils.Warnf("%v", err)
				}
			} else {
				if token == "" {
					if token, err = readSecret("Access token: "); err != nil {
						return err
					}
				}
				tok := &oauth2.Token{
					AccessToken:  strings.TrimSpace(token),
					RefreshToken: strings.TrimSpace(refresh),
					TokenType:    "Bearer",
				}
				if candidate, err = a.SignIn(ctx, tok); err != nil && !a.IsSignedIn() {
					return fmt.Errorf("sign-in failed: %w", err)
				} else if err != nil {
					utils.Warnf("%v", err)
				}
			}

			fmt.Printf("✓ Signed in to Google Drive (%s)\n", a.Session().Source())
			if candidate == nil || noRestore {
				return nil
			}
			return offerRestore(ctx, a, candidate)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token (prompted when omitted)")
	cmd.Flags().StringVar(&refresh, "refresh-token", "", "refresh token")
	cmd.Flags().BoolVar(&browser, "browser", false, "use the authorization code flow")
	cmd.Flags().BoolVar(&noRestore, "no-restore", false, "do not offer a cloud backup after sign-in")
	return cmd
}

func exchangeCode(ctx context.Context, s *credentials.Session) error {
	url, err := s.AuthCodeURL(uuid.NewString())
	if err != nil {
		return err
	}
	fmt.Printf("Open this URL in a browser and approve access:\n\n  %s\n\n", url)
	code, err := readLine("Authorization code: ")
	if err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}
	return s.Exchange(ctx, code)
}

func offerRestore(ctx context.Context, a *app.App, c *backup.Candidate) error {
	when := "unknown time"
	if !c.Timestamp.IsZero() {
		when = c.Timestamp.Local().Format(time.DateTime)
	}
	fmt.Printf("\nFound a backup in Google Drive: %s (%s)\n", c.Name, when)
	if !utils.Confirm("Restore it to this device?") {
		fmt.Println("Skipped. Restore later with: jurnalguru restore cloud " + c.ID)
		return nil
	}
	env, err := a.Backup().RestoreFromCloud(ctx, c.ID)
	if err != nil {
		return err
	}
	printEnvelopeSummary(env)
	fmt.Println("✓ Restored from Google Drive")
	return nil
}

func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(prompt)
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// newAuthLogoutCmd creates the 'auth logout' command
func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Long: `Sign out of Google Drive. Automatic backups stop until the next sign-in.
A token supplied through the environment is still picked up on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if !a.IsSignedIn() {
				fmt.Println("Not signed in")
				return nil
			}
			if err := a.SignOut(); err != nil {
				return err
			}
			fmt.Println("✓ Signed out of Google Drive")
			if credentials.HasEnvToken() {
				fmt.Printf("Note: %s is still set and will sign in again on the next run\n", credentials.EnvAccessToken)
			}
			return nil
		},
	}
}

// newAuthStatusCmd creates the 'auth status' command
func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the Drive token comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			info := struct {
				SignedIn  bool   `json:"signed_in" yaml:"signed_in"`
				Source    string `json:"source" yaml:"source"`
				Keyring   bool   `json:"keyring_available" yaml:"keyring_available"`
				EnvToken  bool   `json:"env_token" yaml:"env_token"`
				BrowserOK bool   `json:"browser_sign_in" yaml:"browser_sign_in"`
			}{
				SignedIn:  a.IsSignedIn(),
				Source:    string(a.Session().Source()),
				Keyring:   credentials.IsAvailable(),
				EnvToken:  credentials.HasEnvToken(),
				BrowserOK: a.Config().Drive.ClientID != "",
			}
			return printResult(info, func() {
				if info.SignedIn {
					fmt.Printf("Signed in (token from %s)\n", info.Source)
				} else {
					fmt.Println("Not signed in. Run: jurnalguru auth login")
				}
				fmt.Printf("Keyring available: %v\n", info.Keyring)
				fmt.Printf("Environment token: %v\n", info.EnvToken)
				fmt.Printf("Browser sign-in configured: %v\n", info.BrowserOK)
			})
		},
	}
}
