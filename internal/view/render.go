// Package view renders session snapshots as plain text and drives the
// session controller from typed terminal commands.
package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/session"
)

// Hospital affordance labels.
const (
	HospitalIdle        = "Recommend Hospital"
	HospitalRunning     = "Recommending..."
	HospitalRecommended = "Recommended"
)

const rule = "----------------------------------------"

// Render returns the full screen for snap.
func Render(snap session.Snapshot) string {
	switch snap.View {
	case session.ViewRegister:
		return RenderRegister()
	case session.ViewHome:
		return RenderSidebar(snap) + RenderHome(snap)
	case session.ViewConversation:
		conv, ok := snap.Current()
		if !ok {
			return RenderSidebar(snap) + RenderHome(snap)
		}
		return RenderSidebar(snap) + RenderConversation(conv, snap)
	default:
		return RenderLogin()
	}
}

// RenderLogin shows the login form.
func RenderLogin() string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("AI Medical Assistant - Sign in\n")
	b.WriteString(rule + "\n")
	b.WriteString("  /login <username> <password>\n")
	b.WriteString("  /register            create an account\n")
	b.WriteString("  /quit\n")
	return b.String()
}

// RenderRegister shows the registration form.
func RenderRegister() string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("AI Medical Assistant - Register\n")
	b.WriteString(rule + "\n")
	b.WriteString("  /register <username> <password>   you will be asked for age, gender and history\n")
	b.WriteString("  /back                            return to sign in\n")
	return b.String()
}

// RenderHome shows the landing screen for a logged-in user.
func RenderHome(snap session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome, %s.\n", displayName(snap.Username))
	b.WriteString("Describe your symptoms in a new conversation to receive a structured report.\n")
	b.WriteString("  /new  /open <n>  /delete <n>  /clear  /sidebar  /logout  /help\n")
	return b.String()
}

// RenderSidebar lists conversations. Expanded shows titles; collapsed shows
// only indexes. The current conversation is marked with '*'.
func RenderSidebar(snap session.Snapshot) string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	if len(snap.Conversations) == 0 {
		b.WriteString("No conversations yet.\n")
		b.WriteString(rule + "\n")
		return b.String()
	}
	if !snap.SidebarExpanded {
		parts := make([]string, len(snap.Conversations))
		for i, c := range snap.Conversations {
			label := strconv.Itoa(i + 1)
			if c.ID == snap.CurrentID {
				label = "*" + label
			}
			parts[i] = "[" + label + "]"
		}
		b.WriteString(strings.Join(parts, " ") + "\n")
		b.WriteString(rule + "\n")
		return b.String()
	}
	b.WriteString("Conversations\n")
	for i, c := range snap.Conversations {
		status := ""
		if snap.InFlight[c.ID] {
			status = " (thinking)"
		}
		fmt.Fprintf(&b, " %s%2d. %s%s\n", marker(c.ID == snap.CurrentID), i+1, c.Title, status)
	}
	b.WriteString(rule + "\n")
	return b.String()
}

// RenderConversation shows the transcript and the available actions.
func RenderConversation(conv medical.Conversation, snap session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", conv.Title)
	if len(conv.Messages) == 0 {
		b.WriteString("Describe how you feel to get started.\n")
	}
	for _, m := range conv.Messages {
		b.WriteString(RenderMessage(m))
		b.WriteString("\n")
	}
	b.WriteString(rule + "\n")
	actions := []string{"type a message", "/home"}
	if conv.AwaitingReport() && !snap.InFlight[conv.ID] {
		actions = append(actions, "/retry")
	}
	if _, ok := conv.LastResolvedReport(); ok {
		label := HospitalLabel(conv, snap)
		if label == HospitalIdle {
			actions = append(actions, "/hospital ("+label+")")
		} else {
			actions = append(actions, label)
		}
	}
	b.WriteString(strings.Join(actions, " | ") + "\n")
	return b.String()
}

// HospitalLabel reports the hospital affordance state for conv.
func HospitalLabel(conv medical.Conversation, snap session.Snapshot) string {
	switch {
	case snap.Recommending[conv.ID]:
		return HospitalRunning
	case conv.HasHospital():
		return HospitalRecommended
	default:
		return HospitalIdle
	}
}

// RenderMessage formats one transcript entry.
func RenderMessage(m medical.Message) string {
	switch m.Type {
	case medical.MessageTypeUser:
		return "You: " + m.Text + "\n"
	case medical.MessageTypeAI:
		if m.IsPending() || m.Report == nil {
			return "Assistant: " + medical.PendingPlaceholder + "...\n"
		}
		return renderReport(*m.Report)
	case medical.MessageTypeHospital:
		if m.Hospital == nil {
			return ""
		}
		return renderHospital(*m.Hospital)
	default:
		return ""
	}
}

func renderReport(r medical.MedicalReport) string {
	var b strings.Builder
	b.WriteString("Assistant: Medical report\n")
	b.WriteString("  Basic information\n")
	if r.BasicInfo.Age > 0 {
		fmt.Fprintf(&b, "    Age: %d\n", r.BasicInfo.Age)
	}
	writeField(&b, "    Gender", r.BasicInfo.Gender)
	writeField(&b, "    Medical history", r.BasicInfo.MedicalHistory)
	writeField(&b, "    Family history", r.BasicInfo.FamilyHistory)
	if len(r.Prompts.Symptoms) > 0 {
		b.WriteString("  Symptoms\n")
		for _, s := range r.Prompts.Symptoms {
			b.WriteString("    - " + s + "\n")
		}
	}
	b.WriteString("  Diagnosis\n")
	writeField(&b, "    Possible disease", r.Diagnosis.PossibleDisease)
	writeField(&b, "    Department", r.Diagnosis.Department)
	writeField(&b, "    Treatment options", r.Diagnosis.TreatmentOptions)
	return b.String()
}

func renderHospital(h medical.HospitalRecommendation) string {
	var b strings.Builder
	b.WriteString("Assistant: Recommended hospital\n")
	writeField(&b, "  Name", h.HospitalName)
	writeField(&b, "  Address", h.Address)
	fmt.Fprintf(&b, "  Distance: %.1f km\n", h.Distance)
	writeField(&b, "  Contact", h.Contact)
	writeField(&b, "  Department", h.Department)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func marker(current bool) string {
	if current {
		return "*"
	}
	return " "
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}
