package app

import "fmt"

// ModeKind identifies which screen is active.
type ModeKind int

const (
	ModeMessageTable ModeKind = iota
	ModeMessage
	ModeCompose
)

// TableStatus is the banner state of the message table.
type TableStatus int

const (
	TableNormal TableStatus = iota
	TableMessageSent
)

// Outcome is the result of the most recent send.
type Outcome struct {
	Failed bool
	Reason string
}

// Field is a compose form field. Focus cycles To, Subject, Body, To.
type Field int

const (
	FieldTo Field = iota
	FieldSubject
	FieldBody
)

// Next returns the field that follows f.
func (f Field) Next() Field {
	switch f {
	case FieldTo:
		return FieldSubject
	case FieldSubject:
		return FieldBody
	default:
		return FieldTo
	}
}

func (f Field) String() string {
	switch f {
	case FieldTo:
		return "To"
	case FieldSubject:
		return "Subject"
	case FieldBody:
		return "Body"
	default:
		return "?"
	}
}

// EditMode says whether keys go to the focused buffer.
type EditMode int

const (
	Navigating EditMode = iota
	Editing
)

// Focus is the compose cursor.
type Focus struct {
	Field Field
	Edit  EditMode
}

// Mode is the active controller mode. Only the fields belonging to Kind
// are meaningful; the rest stay zero so modes compare with ==.
type Mode struct {
	Kind ModeKind

	// ModeMessageTable
	Status  TableStatus
	Outcome Outcome

	// ModeMessage
	Selected int

	// ModeCompose
	Focus Focus
}

// MessageTable is the table with no banner.
func MessageTable() Mode {
	return Mode{Kind: ModeMessageTable}
}

// MessageTableSent is the table showing a send outcome.
func MessageTableSent(o Outcome) Mode {
	return Mode{Kind: ModeMessageTable, Status: TableMessageSent, Outcome: o}
}

// MessageView shows the message at row i of the loaded list.
func MessageView(i int) Mode {
	return Mode{Kind: ModeMessage, Selected: i}
}

// Compose is the compose form with the given focus.
func Compose(f Focus) Mode {
	return Mode{Kind: ModeCompose, Focus: f}
}

func (m Mode) String() string {
	switch m.Kind {
	case ModeMessageTable:
		if m.Status == TableMessageSent {
			if m.Outcome.Failed {
				return "table (send failed)"
			}
			return "table (sent)"
		}
		return "table"
	case ModeMessage:
		return fmt.Sprintf("message #%d", m.Selected)
	case ModeCompose:
		if m.Focus.Edit == Editing {
			return fmt.Sprintf("compose %s (editing)", m.Focus.Field)
		}
		return fmt.Sprintf("compose %s", m.Focus.Field)
	default:
		return "unknown"
	}
}
