package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mailterm/internal/credential"
	"github.com/nhle/mailterm/internal/model"
)

// setupAnswers holds form values on the heap so huh's Value pointers stay
// valid while the form runs.
type setupAnswers struct {
	from string

	smtpEnabled  bool
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	smtpTLS      bool

	imapEnabled  bool
	imapHost     string
	imapPort     string
	imapUsername string
	imapPassword string
	imapTLS      bool
}

type passwordSetter interface {
	Set(key, value string) error
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure identity and mail servers",
	Long: `Interactively write the config file and store server passwords in
the system keyring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ans := answersFrom(cfg)

		if err := setupForm(ans).RunWithContext(cmd.Context()); err != nil {
			return fmt.Errorf("setup: %w", err)
		}

		updated, err := applySetup(cfg, ans)
		if err != nil {
			return err
		}

		path := configPath()
		if err := model.SaveConfig(path, updated); err != nil {
			return err
		}
		if err := savePasswords(credential.New(), ans); err != nil {
			return err
		}

		logger.Info("config saved", "path", path)
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	},
}

func answersFrom(c *model.AppConfig) *setupAnswers {
	return &setupAnswers{
		from:         c.Identity.From,
		smtpEnabled:  c.SMTP.Enabled,
		smtpHost:     c.SMTP.Host,
		smtpPort:     c.SMTP.Port,
		smtpUsername: c.SMTP.Username,
		smtpTLS:      c.SMTP.TLS,
		imapEnabled:  c.IMAP.Enabled,
		imapHost:     c.IMAP.Host,
		imapPort:     c.IMAP.Port,
		imapUsername: c.IMAP.Username,
		imapTLS:      c.IMAP.TLS,
	}
}

func setupForm(ans *setupAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("From").
				Description("Address put on messages you send").
				Placeholder("me@example.com").
				Value(&ans.from).
				Validate(validateRequired("From")),
			huh.NewConfirm().
				Title("Send over SMTP").
				Description("Otherwise sent messages are only stored locally").
				Value(&ans.smtpEnabled),
			huh.NewConfirm().
				Title("Import inbox over IMAP").
				Value(&ans.imapEnabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP Host").
				Placeholder("smtp.example.com").
				Value(&ans.smtpHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Placeholder("587").
				Value(&ans.smtpPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Leave empty for servers without authentication").
				Value(&ans.smtpUsername),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring; empty keeps the current one").
				EchoMode(huh.EchoModePassword).
				Value(&ans.smtpPassword),
			huh.NewConfirm().
				Title("Implicit TLS").
				Description("No means STARTTLS when the server offers it").
				Value(&ans.smtpTLS),
		).WithHideFunc(func() bool { return !ans.smtpEnabled }),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&ans.imapHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&ans.imapPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Value(&ans.imapUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring; empty keeps the current one").
				EchoMode(huh.EchoModePassword).
				Value(&ans.imapPassword),
			huh.NewConfirm().
				Title("Use TLS").
				Value(&ans.imapTLS),
		).WithHideFunc(func() bool { return !ans.imapEnabled }),
	)
}

// applySetup returns a copy of c with the answers applied.
func applySetup(c *model.AppConfig, ans *setupAnswers) (*model.AppConfig, error) {
	out := *c

	out.Identity.From = strings.TrimSpace(ans.from)

	out.SMTP.Enabled = ans.smtpEnabled
	if ans.smtpEnabled {
		out.SMTP.Host = strings.TrimSpace(ans.smtpHost)
		out.SMTP.Port = strings.TrimSpace(ans.smtpPort)
		out.SMTP.Username = strings.TrimSpace(ans.smtpUsername)
		out.SMTP.TLS = ans.smtpTLS
	}

	out.IMAP.Enabled = ans.imapEnabled
	if ans.imapEnabled {
		out.IMAP.Host = strings.TrimSpace(ans.imapHost)
		out.IMAP.Port = strings.TrimSpace(ans.imapPort)
		out.IMAP.Username = strings.TrimSpace(ans.imapUsername)
		out.IMAP.TLS = ans.imapTLS
		// Imports are deduplicated by the SQLite store.
		out.Store.Driver = model.StoreDriverSQLite
		if out.Store.Path == "" {
			out.Store.Path = model.DefaultAppConfig().Store.Path
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("setup produced an invalid config: %w", err)
	}
	return &out, nil
}

func savePasswords(s passwordSetter, ans *setupAnswers) error {
	if ans.smtpEnabled && ans.smtpPassword != "" {
		if err := s.Set(credential.SMTPPasswordKey, ans.smtpPassword); err != nil {
			return fmt.Errorf("saving smtp password: %w", err)
		}
	}
	if ans.imapEnabled && ans.imapPassword != "" {
		if err := s.Set(credential.IMAPPasswordKey, ans.imapPassword); err != nil {
			return fmt.Errorf("saving imap password: %w", err)
		}
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
