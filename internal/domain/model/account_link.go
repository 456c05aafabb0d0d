package model

import "time"

// AccountLink binds one platform user to one Telegram chat.
type AccountLink struct {
	UserID               string
	ChatID               int64
	Handle               string
	DisplayName          string
	LinkedAt             time.Time
	LastActiveAt         time.Time
	NotificationsEnabled bool
}

func (l *AccountLink) IsZero() bool { return l == nil || l.UserID == "" }

// ChatProfile carries the sender details Telegram gives us with each update.
type ChatProfile struct {
	ChatID      int64
	Handle      string
	DisplayName string
}
