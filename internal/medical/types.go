// Package medical holds the conversation model shared by the assistant
// client, the transport layer and the reference backend.
package medical

// MessageType tags the variant carried by a Message.
type MessageType string

const (
	MessageTypeUser     MessageType = "user"
	MessageTypeAI       MessageType = "ai"
	MessageTypeHospital MessageType = "hospital"
)

// PendingPlaceholder is the wire value of an ai message still waiting on the
// backend.
const PendingPlaceholder = "thinking"

// BasicInfo describes the subject of a report.
type BasicInfo struct {
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	MedicalHistory string `json:"medicalHistory"`
	FamilyHistory  string `json:"familyHistory"`
}

// Prompts carries the symptoms extracted from the user's description.
type Prompts struct {
	Symptoms []string `json:"symptoms"`
}

// Diagnosis is the assistant's assessment.
type Diagnosis struct {
	PossibleDisease  string `json:"possibleDisease"`
	Department       string `json:"department"`
	TreatmentOptions string `json:"treatmentOptions"`
}

// MedicalReport is produced by the backend for one user message. It is
// immutable once attached to a message.
type MedicalReport struct {
	BasicInfo BasicInfo `json:"basicInfo"`
	Prompts   Prompts   `json:"prompts"`
	Diagnosis Diagnosis `json:"diagnosis"`
}

// HospitalRecommendation is the result of a department search.
type HospitalRecommendation struct {
	HospitalName string  `json:"hospitalName"`
	Address      string  `json:"address"`
	Distance     float64 `json:"distance"`
	Contact      string  `json:"contact"`
	Department   string  `json:"department"`
}

// Conversation is an ordered thread of messages.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}
