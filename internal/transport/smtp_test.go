package transport

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nhle/mailterm/internal/model"
)

// fakeSMTPServer accepts a single session and records the envelope.
type fakeSMTPServer struct {
	ln net.Listener

	mu   sync.Mutex
	from string
	rcpt string
	data string
	done chan struct{}
}

func newFakeSMTPServer(t *testing.T, rejectRcpt bool) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTPServer{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go s.serve(rejectRcpt)
	return s
}

func (s *fakeSMTPServer) serve(rejectRcpt bool) {
	defer close(s.done)

	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	tp := textproto.NewConn(conn)

	tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			tp.PrintfLine("250-localhost")
			tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			s.mu.Lock()
			s.from = envelopeAddr(line[len("MAIL FROM:"):])
			s.mu.Unlock()
			tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			if rejectRcpt {
				tp.PrintfLine("550 no such user")
				continue
			}
			s.mu.Lock()
			s.rcpt = envelopeAddr(line[len("RCPT TO:"):])
			s.mu.Unlock()
			tp.PrintfLine("250 OK")
		case cmd == "DATA":
			tp.PrintfLine("354 go ahead")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = strings.Join(lines, "\n")
			s.mu.Unlock()
			tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			tp.PrintfLine("221 bye")
			return
		default:
			tp.PrintfLine("502 unsupported")
		}
	}
}

// envelopeAddr drops ESMTP parameters such as BODY=8BITMIME.
func envelopeAddr(arg string) string {
	addr, _, _ := strings.Cut(strings.TrimSpace(arg), " ")
	return addr
}

func (s *fakeSMTPServer) port() string {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	return port
}

func TestSMTPDeliver(t *testing.T) {
	srv := newFakeSMTPServer(t, false)
	tr := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: srv.port()}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := tr.Deliver(ctx, model.Message{
		ID: 7, From: "me@me.me", To: "bob@bob.me", Subject: "Hi", Body: "Hello there",
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	<-srv.done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.from != "<me@me.me>" {
		t.Errorf("MAIL FROM = %q", srv.from)
	}
	if srv.rcpt != "<bob@bob.me>" {
		t.Errorf("RCPT TO = %q", srv.rcpt)
	}
	if !strings.Contains(srv.data, "Subject: Hi") || !strings.Contains(srv.data, "Hello there") {
		t.Errorf("unexpected DATA:\n%s", srv.data)
	}
}

func TestSMTPDeliverRejectedRecipient(t *testing.T) {
	srv := newFakeSMTPServer(t, true)
	tr := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: srv.port()}, nil)

	err := tr.Deliver(context.Background(), model.Message{
		From: "me@me.me", To: "ghost@bob.me", Subject: "Hi",
	})
	if err == nil || !strings.Contains(err.Error(), "RCPT TO") {
		t.Fatalf("expected RCPT TO failure, got %v", err)
	}
}

func TestSMTPDeliverInvalidAddressSkipsNetwork(t *testing.T) {
	tr := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: "1"}, nil)
	err := tr.Deliver(context.Background(), model.Message{From: "me@me.me", To: "???"})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("expected invalid recipient error, got %v", err)
	}
}

func TestSMTPDeliverInvalidSenderSkipsNetwork(t *testing.T) {
	tr := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: "1"}, nil)
	err := tr.Deliver(context.Background(), model.Message{From: "not an address", To: "bob@bob.me"})
	if err == nil || !strings.Contains(err.Error(), "invalid sender") {
		t.Fatalf("expected invalid sender error, got %v", err)
	}
}

func TestLocalDeliverSucceeds(t *testing.T) {
	if err := NewLocal(nil).Deliver(context.Background(), model.Message{ID: 1}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}
