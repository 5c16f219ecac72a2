package ai

import (
	"fmt"
	"strings"

	"github.com/ternarybob/prospect/internal/models"
)

// System prompts per sub-task. Each prompt pins the assistant to a single
// analysis so one batch request produces one attachable result.
const (
	systemCompanyProfile = "You are a B2B sales research assistant. Given a contact's details, write a concise company profile: what the company does, its market, approximate size, and recent direction. Plain prose, no headings."

	systemRoleAnalysis = "You are a B2B sales research assistant. Given a contact's details, analyze their role: likely responsibilities, seniority, decision-making authority, and what they care about in a purchase. Plain prose, no headings."

	systemBuyingSignals = "You are a B2B sales research assistant. Given a contact's details, identify plausible buying signals: triggers, timing indicators, and openings a sales rep could act on. Plain prose, no headings."

	systemEmailDraft = "You are a sales copywriter. Write a complete outreach email for the given contact. Return only the email body, ready to send. No subject line, no commentary."

	systemDealRisk = "You are a sales pipeline analyst. Given a deal's details, assess its risks: stalling factors, competitive threats, and likelihood concerns. Plain prose, no headings."

	systemNextSteps = "You are a sales pipeline analyst. Given a deal's details, recommend the concrete next steps the owning rep should take to advance it. Plain prose, numbered list."

	systemLinkedIn = "You are a sales research assistant. Given a contact's details, describe the professional presence this person most likely maintains on LinkedIn: probable headline, focus areas, and content themes. Note clearly that this is inferred, not verified."

	systemTwitter = "You are a sales research assistant. Given a contact's details, describe the presence this person most likely maintains on X/Twitter: probable topics, tone, and engagement style. Note clearly that this is inferred, not verified."
)

func systemForSubTask(subTask string) (string, error) {
	switch subTask {
	case models.SubTaskCompanyProfile:
		return systemCompanyProfile, nil
	case models.SubTaskRoleAnalysis:
		return systemRoleAnalysis, nil
	case models.SubTaskBuyingSignals:
		return systemBuyingSignals, nil
	case models.SubTaskEmailDraft:
		return systemEmailDraft, nil
	case models.SubTaskDealRisk:
		return systemDealRisk, nil
	case models.SubTaskNextSteps:
		return systemNextSteps, nil
	case models.SubTaskLinkedIn:
		return systemLinkedIn, nil
	case models.SubTaskTwitter:
		return systemTwitter, nil
	default:
		return "", fmt.Errorf("no system prompt for sub-task: %s", subTask)
	}
}

// contactPrompt renders a contact's details as the user message
func contactPrompt(contact *models.Contact) string {
	var b strings.Builder
	b.WriteString("Contact details:\n")
	writeField(&b, "Name", contact.Name)
	writeField(&b, "Email", contact.Email)
	writeField(&b, "Company", contact.Company)
	writeField(&b, "Title", contact.Title)
	writeField(&b, "Notes", contact.Notes)
	return b.String()
}

// emailPrompt renders a contact plus campaign parameters as the user message
func emailPrompt(contact *models.Contact, campaign, tone string) string {
	var b strings.Builder
	b.WriteString(contactPrompt(contact))
	if campaign != "" {
		writeField(&b, "Campaign", campaign)
	}
	if tone != "" {
		writeField(&b, "Desired tone", tone)
	}
	if contact.Enrichment != nil {
		writeField(&b, "Known company profile", contact.Enrichment.CompanyProfile)
		writeField(&b, "Known buying signals", contact.Enrichment.BuyingSignals)
	}
	return b.String()
}

// dealPrompt renders a deal and its contact as the user message
func dealPrompt(deal *models.Deal, contact *models.Contact) string {
	var b strings.Builder
	b.WriteString("Deal details:\n")
	writeField(&b, "Name", deal.Name)
	writeField(&b, "Stage", string(deal.Stage))
	if deal.Amount > 0 {
		writeField(&b, "Amount", fmt.Sprintf("%.2f", deal.Amount))
	}
	if contact != nil {
		writeField(&b, "Primary contact", contact.Name)
		writeField(&b, "Contact title", contact.Title)
		writeField(&b, "Contact company", contact.Company)
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
