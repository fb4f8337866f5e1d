package imap

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/nhle/mailterm/internal/model"
)

const multipartMessage = "From: Bob <bob@bob.me>\r\n" +
	"To: me@me.me\r\n" +
	"Subject: Hi\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello there\r\nsecond line\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello <b>there</b></p>\r\n" +
	"--XYZ--\r\n"

const htmlOnlyMessage = "From: alice@alice.me\r\n" +
	"Subject: TPS\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<div>Reports &amp; more</div><br>done"

func TestParseMIMEBodyMultipart(t *testing.T) {
	text, html := parseMIMEBody([]byte(multipartMessage))
	if text != "Hello there\nsecond line" {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(html, "<b>there</b>") {
		t.Errorf("html = %q", html)
	}
}

func TestParseMIMEBodyUnparsable(t *testing.T) {
	text, html := parseMIMEBody([]byte("no headers at all"))
	if text == "" || html != "" {
		t.Errorf("expected raw fallback, got %q / %q", text, html)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"<p>a</p><p>b</p>", "a\nb"},
		{"x &lt;y&gt; &quot;z&quot; &#39;w&#39;", `x <y> "z" 'w'`},
		{"a<br><br><br><br>b", "a\n\nb"},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToMessage(t *testing.T) {
	date := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	env := &goimap.Envelope{
		Date:    date,
		Subject: "Hi",
		From:    []goimap.Address{{Name: "Bob", Mailbox: "bob", Host: "bob.me"}},
		To:      []goimap.Address{{Mailbox: "me", Host: "me.me"}},
	}

	got := toMessage(7, 42, env, []byte(multipartMessage))
	want := model.Message{
		From:      "bob@bob.me",
		To:        "me@me.me",
		Subject:   "Hi",
		Body:      "Hello there\nsecond line",
		CreatedAt: date,
		RemoteID:  "INBOX/7/42",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toMessage mismatch (-want +got):\n%s", diff)
	}
}

func TestToMessageHTMLFallback(t *testing.T) {
	got := toMessage(1, 1, nil, []byte(htmlOnlyMessage))
	if got.Body != "Reports & more\n\ndone" && got.Body != "Reports & more\ndone" {
		t.Errorf("body = %q", got.Body)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected a fallback timestamp")
	}
}

func TestIsAuthError(t *testing.T) {
	err := fmt.Errorf("polling: %w", &AuthError{Username: "me", Message: "bad password"})
	if !IsAuthError(err) {
		t.Fatal("expected wrapped AuthError to be detected")
	}
	if IsAuthError(errors.New("timeout")) {
		t.Fatal("plain error is not an auth error")
	}
}
