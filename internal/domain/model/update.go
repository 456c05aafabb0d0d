package model

import "strings"

// Sender is the Telegram user behind an inbound update.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
}

// InboundUpdate is either a *TextMessage or a *CallbackQuery.
// Updates of any other shape are dropped at the transport boundary.
type InboundUpdate interface {
	UpdateID() int
	Chat() int64
	Profile() ChatProfile
	inbound()
}

type TextMessage struct {
	ID     int
	ChatID int64
	From   Sender
	Text   string
}

func (m *TextMessage) UpdateID() int { return m.ID }
func (m *TextMessage) Chat() int64   { return m.ChatID }
func (m *TextMessage) Profile() ChatProfile {
	return ChatProfile{ChatID: m.ChatID, Handle: m.From.Username, DisplayName: m.From.FirstName}
}
func (*TextMessage) inbound() {}

// Command splits "/cmd@Bot arg1 arg2" into ("cmd", ["arg1", "arg2"]).
// ok is false when the text is not a command.
func (m *TextMessage) Command() (name string, args []string, ok bool) {
	fields := strings.Fields(m.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

type CallbackQuery struct {
	ID      int
	QueryID string
	ChatID  int64
	From    Sender
	Data    string
}

func (q *CallbackQuery) UpdateID() int { return q.ID }
func (q *CallbackQuery) Chat() int64   { return q.ChatID }
func (q *CallbackQuery) Profile() ChatProfile {
	return ChatProfile{ChatID: q.ChatID, Handle: q.From.Username, DisplayName: q.From.FirstName}
}
func (*CallbackQuery) inbound() {}
