package model

import "time"

// Message is a single mail message as held by a store.
type Message struct {
	// ID is assigned by the store, unique and increasing.
	ID int64 `json:"id" db:"id"`

	// From is the sender address.
	From string `json:"from" db:"from_addr"`

	// To is the single recipient address.
	To string `json:"to" db:"to_addr"`

	// Subject is the one-line subject.
	Subject string `json:"subject" db:"subject"`

	// Body is the full text. Stores that split list metadata from bodies
	// leave it empty until it is fetched explicitly.
	Body string `json:"body" db:"body"`

	// CreatedAt is when the store first saw the message.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// RemoteID identifies a message imported from a remote mailbox.
	// Empty for locally composed messages.
	RemoteID string `json:"remote_id,omitempty" db:"remote_id"`
}

// WithBody returns a copy of m carrying body.
func (m Message) WithBody(body string) Message {
	m.Body = body
	return m
}
