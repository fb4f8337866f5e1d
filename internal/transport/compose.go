package transport

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/nhle/mailterm/internal/model"
)

// Compose renders msg as an RFC 5322 message with a single text/plain
// part. Both addresses must parse.
func Compose(msg model.Message, date time.Time) ([]byte, error) {
	from, to, err := parseEnvelope(msg)
	if err != nil {
		return nil, err
	}
	return composeParsed(msg, from, to, date)
}

// parseEnvelope parses the sender and recipient of msg.
func parseEnvelope(msg model.Message) (from, to *mail.Address, err error) {
	from, err = mail.ParseAddress(msg.From)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	to, err = mail.ParseAddress(msg.To)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	return from, to, nil
}

func composeParsed(msg model.Message, from, to *mail.Address, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(msg.Subject)
	h.SetMessageID(messageID(from.Address))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(normalizeNewlines(msg.Body))); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message body: %w", err)
	}

	return buf.Bytes(), nil
}

// messageID builds a Message-ID under the sender's domain.
func messageID(addr string) string {
	domain := "localhost"
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		domain = addr[i+1:]
	}
	return uuid.New().String() + "@" + domain
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
