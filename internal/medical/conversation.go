package medical

import (
	"strconv"
	"time"
)

// TitleLayout formats conversation titles.
const TitleLayout = "2006-01-02 15:04:05"

// NewConversation allocates an empty conversation whose id derives from now.
// taken reports ids already in use; the id is bumped until it is free.
func NewConversation(now time.Time, taken func(id string) bool) Conversation {
	ms := now.UnixMilli()
	id := strconv.FormatInt(ms, 10)
	for taken != nil && taken(id) {
		ms++
		id = strconv.FormatInt(ms, 10)
	}
	return Conversation{
		ID:       id,
		Title:    "Chat at " + now.Local().Format(TitleLayout),
		Messages: []Message{},
	}
}

// LastResolvedReport returns the report of the most recent resolved ai message.
func (c Conversation) LastResolvedReport() (*MedicalReport, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].IsResolvedAI() {
			r := c.Messages[i].Report.clone()
			return &r, true
		}
	}
	return nil, false
}

// LastUserText returns the text of the most recent user message.
func (c Conversation) LastUserText() (string, bool) {
	return c.UserTextBefore(len(c.Messages))
}

// HasHospital reports whether a hospital recommendation was already appended.
func (c Conversation) HasHospital() bool {
	for _, m := range c.Messages {
		if m.Type == MessageTypeHospital {
			return true
		}
	}
	return false
}

// PendingIndex returns the position of the most recent pending placeholder,
// or -1 when every ai message is resolved.
func (c Conversation) PendingIndex() int {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].IsPending() {
			return i
		}
	}
	return -1
}

// AwaitingReport reports whether a pending placeholder is present.
func (c Conversation) AwaitingReport() bool {
	return c.PendingIndex() >= 0
}

// UserTextBefore returns the text of the last user message positioned
// before index i.
func (c Conversation) UserTextBefore(i int) (string, bool) {
	if i > len(c.Messages) {
		i = len(c.Messages)
	}
	for j := i - 1; j >= 0; j-- {
		if c.Messages[j].Type == MessageTypeUser {
			return c.Messages[j].Text, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// CloneAll deep-copies a conversation list.
func CloneAll(list []Conversation) []Conversation {
	out := make([]Conversation, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}
