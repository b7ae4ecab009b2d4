package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vibe-tracker/tracker-backend/internal/auth"
	"vibe-tracker/tracker-backend/pkg/identity"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idc, err := a.identity()
			if err != nil {
				return err
			}
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if password, err = a.prompt("Password", password); err != nil {
				return err
			}
			sess, err := idc.SignInWithPassword(cmd.Context(), email, password)
			if err != nil {
				return a.authFailed(err)
			}
			return a.saveSession(sess)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idc, err := a.identity()
			if err != nil {
				return err
			}
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if password, err = a.prompt("Password", password); err != nil {
				return err
			}
			sess, err := idc.SignUp(cmd.Context(), email, password, name)
			if err != nil {
				return a.authFailed(err)
			}
			return a.saveSession(sess)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			a.printf("Signed out.\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity the server sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			me, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("uid:   %s\n", me.UID)
			if me.Email != "" {
				a.printf("email: %s\n", me.Email)
			}
			if me.Name != "" {
				a.printf("name:  %s\n", me.Name)
			}
			return nil
		},
	}
}

// devTokenCmd mints a token for a server running with the dev verifier.
func (a *app) devTokenCmd() *cobra.Command {
	var (
		uid, email, name string
		ttl              time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Issue a development token signed with dev_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := a.v.GetString("dev_secret")
			if secret == "" {
				return errors.New("dev_secret is not configured")
			}
			tok, err := auth.IssueDevToken(secret, auth.Identity{UID: uid, Email: email, Name: name}, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			a.printf("%s\n", tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "dev-user", "subject uid")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func (a *app) saveSession(sess *identity.Session) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	if err := store.Save(sess); err != nil {
		return err
	}
	who := sess.Email
	if sess.DisplayName != "" {
		who = fmt.Sprintf("%s <%s>", sess.DisplayName, sess.Email)
	}
	a.printf("Signed in as %s.\n", who)
	return nil
}

// authFailed prints known credential errors inline.
func (a *app) authFailed(err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrEmailExists),
		errors.Is(err, identity.ErrWeakPassword):
		a.printf("%s\n", a.theme.errText.Render(err.Error()))
		return &reportedError{err: err}
	default:
		return err
	}
}
