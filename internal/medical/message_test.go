package medical

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() MedicalReport {
	return MedicalReport{
		BasicInfo: BasicInfo{Age: 45, Gender: "male", MedicalHistory: "hypertension", FamilyHistory: "none"},
		Prompts:   Prompts{Symptoms: []string{"chest pain", "shortness of breath"}},
		Diagnosis: Diagnosis{
			PossibleDisease:  "angina",
			Department:       "emergency department",
			TreatmentOptions: "ECG, rest, nitroglycerin",
		},
	}
}

func TestMessageWireFormat(t *testing.T) {
	pending, err := json.Marshal(PendingMessage())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ai","content":"thinking"}`, string(pending))

	user, err := json.Marshal(UserMessage("chest pain"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user","content":"chest pain"}`, string(user))

	hospital, err := json.Marshal(HospitalMessage(HospitalRecommendation{HospitalName: "United Christian Hospital", Distance: 1.5}))
	require.NoError(t, err)
	assert.Contains(t, string(hospital), `"hospitalName":"United Christian Hospital"`)
}

func TestConversationRoundTrip(t *testing.T) {
	conv := Conversation{
		ID:    "1700000000000",
		Title: "Chat at 2024-01-01 10:00:00",
		Messages: []Message{
			UserMessage("chest pain"),
			ReportMessage(sampleReport()),
			HospitalMessage(HospitalRecommendation{HospitalName: "United Christian Hospital", Address: "130 Hip Wo St", Distance: 2.4, Contact: "2379 9611", Department: "emergency department"}),
			PendingMessage(),
		},
	}
	data, err := json.Marshal([]Conversation{conv})
	require.NoError(t, err)

	var decoded []Conversation
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, conv, decoded[0])
}

func TestUnmarshalRejectsBadContent(t *testing.T) {
	cases := map[string]string{
		"user with object":   `{"type":"user","content":{"a":1}}`,
		"ai with other text": `{"type":"ai","content":"done"}`,
		"ai with empty obj":  `{"type":"ai","content":{}}`,
		"hospital no name":   `{"type":"hospital","content":{"distance":1}}`,
		"hospital negative":  `{"type":"hospital","content":{"hospitalName":"X","distance":-2}}`,
		"unknown type":       `{"type":"doctor","content":"hi"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var m Message
			assert.Error(t, json.Unmarshal([]byte(raw), &m))
		})
	}
}

func TestParseReportAcceptsStringNumbers(t *testing.T) {
	report, err := ParseReport([]byte(`{
		"basicInfo": {"age": "37", "gender": "female"},
		"prompts": {"symptoms": ["headache"]},
		"diagnosis": {"possibleDisease": "migraine", "department": "neurology"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 37, report.BasicInfo.Age)
	assert.Equal(t, "neurology", report.Department())

	_, err = ParseReport([]byte(`"thinking"`))
	assert.ErrorIs(t, err, ErrInvalidReport)

	_, err = ParseReport([]byte(`{"basicInfo":{"age":"old"},"diagnosis":{"department":"x"}}`))
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestParseHospital(t *testing.T) {
	rec, err := ParseHospital([]byte(`{"hospitalName":"United Christian Hospital","distance":"3.25","department":"emergency department"}`))
	require.NoError(t, err)
	assert.InDelta(t, 3.25, rec.Distance, 1e-9)

	_, err = ParseHospital([]byte(`[]`))
	assert.ErrorIs(t, err, ErrInvalidHospital)
}

func TestResolveOnlyOnce(t *testing.T) {
	resolved, err := PendingMessage().Resolve(sampleReport())
	require.NoError(t, err)
	assert.True(t, resolved.IsResolvedAI())
	assert.False(t, resolved.IsPending())

	_, err = resolved.Resolve(sampleReport())
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = UserMessage("hi").Resolve(sampleReport())
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, UserMessage("x").Validate())
	assert.NoError(t, PendingMessage().Validate())
	assert.NoError(t, ReportMessage(sampleReport()).Validate())
	assert.ErrorIs(t, Message{Type: MessageTypeAI}.Validate(), ErrInvalidMessage)
	assert.ErrorIs(t, Message{Type: MessageTypeHospital}.Validate(), ErrInvalidMessage)
}

func TestCloneIsDeep(t *testing.T) {
	msg := ReportMessage(sampleReport())
	clone := msg.Clone()
	clone.Report.Prompts.Symptoms[0] = "changed"
	assert.Equal(t, "chest pain", msg.Report.Prompts.Symptoms[0])
}

func TestNewConversationAvoidsCollisions(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	taken := map[string]bool{"1700000000000": true, "1700000000001": true}
	conv := NewConversation(now, func(id string) bool { return taken[id] })
	assert.Equal(t, "1700000000002", conv.ID)
	assert.Contains(t, conv.Title, "Chat at ")
	assert.NotNil(t, conv.Messages)
	assert.Empty(t, conv.Messages)
}

func TestConversationHelpers(t *testing.T) {
	first := sampleReport()
	second := sampleReport()
	second.Diagnosis.Department = "cardiology"

	conv := Conversation{Messages: []Message{
		UserMessage("chest pain"),
		ReportMessage(first),
		UserMessage("still hurts"),
		ReportMessage(second),
		PendingMessage(),
	}}
	report, ok := conv.LastResolvedReport()
	require.True(t, ok)
	assert.Equal(t, "cardiology", report.Department())

	text, ok := conv.LastUserText()
	require.True(t, ok)
	assert.Equal(t, "still hurts", text)
	assert.True(t, conv.AwaitingReport())
	assert.False(t, conv.HasHospital())

	_, ok = Conversation{Messages: []Message{UserMessage("a"), PendingMessage()}}.LastResolvedReport()
	assert.False(t, ok)
}

func TestConversation_PendingPlaceholderNotLast(t *testing.T) {
	conv := Conversation{Messages: []Message{
		UserMessage("chest pain"),
		ReportMessage(sampleReport()),
		UserMessage("still hurts"),
		PendingMessage(),
		HospitalMessage(HospitalRecommendation{HospitalName: "United Christian Hospital", Distance: 1.2}),
	}}

	assert.Equal(t, 3, conv.PendingIndex())
	assert.True(t, conv.AwaitingReport())
	text, ok := conv.UserTextBefore(conv.PendingIndex())
	require.True(t, ok)
	assert.Equal(t, "still hurts", text)

	_, ok = conv.UserTextBefore(0)
	assert.False(t, ok)
	assert.Equal(t, -1, Conversation{Messages: []Message{UserMessage("a")}}.PendingIndex())
}
