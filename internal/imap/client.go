// Package imap imports recent INBOX messages from an IMAP server.
package imap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailterm/internal/model"
)

// AuthError indicates that the server rejected the credentials.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("imap auth error (%s): %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Config holds the IMAP server settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// Client wraps go-imap v2 for reading the INBOX. Each call opens its own
// connection and logs out when done.
type Client struct {
	cfg Config
}

// NewClient creates a new IMAP client configuration.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *Client) connect() (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.cfg.Host, c.cfg.Port)

	var client *imapclient.Client
	var err error

	if c.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Username: c.cfg.Username,
			Message:  fmt.Sprintf("authentication failed: %v", err),
		}
	}

	return client, nil
}

// FetchRecent selects INBOX and returns up to limit of the most recent
// messages received since the given time, with bodies. Cancelling ctx
// closes the connection.
func (c *Client) FetchRecent(
	ctx context.Context, since time.Time, limit int,
) ([]model.Message, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()
	defer func() { _ = client.Logout().Wait() }()

	selected, err := client.Select("INBOX", nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	searchData, err := client.UIDSearch(&goimap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Limit the number of UIDs to fetch (take most recent)
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &goimap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(goimap.UIDSetNum(uids...), &goimap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*goimap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var msgs []model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		msgs = append(msgs, toMessage(
			selected.UIDValidity, buf.UID, buf.Envelope, buf.FindBodySection(bodySection),
		))
	}

	if err := fetchCmd.Close(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetching messages: %w", ctxErr)
		}
		return msgs, fmt.Errorf("fetching messages: %w", err)
	}

	return msgs, nil
}

// toMessage converts fetched data into a store message. The remote id is
// stable for as long as the mailbox keeps its UIDVALIDITY.
func toMessage(
	uidValidity uint32, uid goimap.UID, env *goimap.Envelope, raw []byte,
) model.Message {
	msg := model.Message{
		RemoteID:  fmt.Sprintf("INBOX/%d/%d", uidValidity, uid),
		CreatedAt: time.Now().UTC(),
	}

	if env != nil {
		msg.Subject = env.Subject
		if !env.Date.IsZero() {
			msg.CreatedAt = env.Date.UTC()
		}
		if len(env.From) > 0 {
			msg.From = addressString(env.From[0])
		}
		if len(env.To) > 0 {
			msg.To = addressString(env.To[0])
		}
	}

	if raw != nil {
		text, html := parseMIMEBody(raw)
		if text == "" {
			text = stripHTML(html)
		}
		msg.Body = text
	}

	return msg
}

func addressString(a goimap.Address) string {
	if addr := a.Addr(); addr != "" {
		return addr
	}
	return a.Name
}
