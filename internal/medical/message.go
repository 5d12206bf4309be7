package medical

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message is a tagged union over the user, ai and hospital variants. Exactly
// one payload field is meaningful for a given Type; use the constructors.
type Message struct {
	Type     MessageType
	Text     string
	Pending  bool
	Report   *MedicalReport
	Hospital *HospitalRecommendation
}

// UserMessage wraps raw user text.
func UserMessage(text string) Message {
	return Message{Type: MessageTypeUser, Text: text}
}

// PendingMessage is the ai placeholder shown while the backend is working.
func PendingMessage() Message {
	return Message{Type: MessageTypeAI, Pending: true}
}

// ReportMessage is a resolved ai message.
func ReportMessage(report MedicalReport) Message {
	r := report.clone()
	return Message{Type: MessageTypeAI, Report: &r}
}

// HospitalMessage carries a recommendation.
func HospitalMessage(rec HospitalRecommendation) Message {
	h := rec
	return Message{Type: MessageTypeHospital, Hospital: &h}
}

// IsPending reports whether m is the ai placeholder.
func (m Message) IsPending() bool {
	return m.Type == MessageTypeAI && m.Pending
}

// IsResolvedAI reports whether m is an ai message carrying a report.
func (m Message) IsResolvedAI() bool {
	return m.Type == MessageTypeAI && !m.Pending && m.Report != nil
}

// Resolve turns a pending placeholder into a resolved ai message. A message
// resolves at most once.
func (m Message) Resolve(report MedicalReport) (Message, error) {
	if !m.IsPending() {
		return m, ErrAlreadyResolved
	}
	return ReportMessage(report), nil
}

// Validate checks that the populated payload matches Type.
func (m Message) Validate() error {
	switch m.Type {
	case MessageTypeUser:
		if m.Pending || m.Report != nil || m.Hospital != nil {
			return fmt.Errorf("%w: user message carries a non-text payload", ErrInvalidMessage)
		}
	case MessageTypeAI:
		if m.Pending == (m.Report != nil) {
			return fmt.Errorf("%w: ai message must be either pending or resolved", ErrInvalidMessage)
		}
		if m.Report != nil {
			return m.Report.Validate()
		}
	case MessageTypeHospital:
		if m.Hospital == nil {
			return fmt.Errorf("%w: hospital message without recommendation", ErrInvalidMessage)
		}
		return m.Hospital.Validate()
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
	return nil
}

// Clone returns a deep copy.
func (m Message) Clone() Message {
	out := m
	if m.Report != nil {
		r := m.Report.clone()
		out.Report = &r
	}
	if m.Hospital != nil {
		h := *m.Hospital
		out.Hospital = &h
	}
	return out
}

type wireMessage struct {
	Type    MessageType     `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes the message as {"type": ..., "content": ...}.
func (m Message) MarshalJSON() ([]byte, error) {
	var content any
	switch m.Type {
	case MessageTypeUser:
		content = m.Text
	case MessageTypeAI:
		if m.Pending || m.Report == nil {
			content = PendingPlaceholder
		} else {
			content = m.Report
		}
	case MessageTypeHospital:
		content = m.Hospital
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Type: m.Type, Content: raw})
}

// UnmarshalJSON decodes and validates the wire form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	content := bytes.TrimSpace(wire.Content)
	switch wire.Type {
	case MessageTypeUser:
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			return fmt.Errorf("%w: user content must be a string", ErrInvalidMessage)
		}
		*m = UserMessage(text)
	case MessageTypeAI:
		var text string
		if err := json.Unmarshal(content, &text); err == nil {
			if text != PendingPlaceholder {
				return fmt.Errorf("%w: unexpected ai text %q", ErrInvalidMessage, text)
			}
			*m = PendingMessage()
			return nil
		}
		report, err := ParseReport(content)
		if err != nil {
			return err
		}
		*m = ReportMessage(*report)
	case MessageTypeHospital:
		rec, err := ParseHospital(content)
		if err != nil {
			return err
		}
		*m = HospitalMessage(*rec)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, wire.Type)
	}
	return nil
}
