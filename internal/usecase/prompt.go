package usecase

import (
	"strings"

	"cv-builder/internal/model"
)

const summaryInstruction = "Write a professional summary of three to four sentences, " +
	"in the first person, for the CV of the candidate described below. " +
	"Return only the summary text."

// SummaryPrompt composes the generation prompt from a document. The output
// depends only on the document's content, so equal documents give equal
// prompts. Empty sections are left out.
func SummaryPrompt(doc *model.CVDocument) string {
	var b strings.Builder
	b.WriteString(summaryInstruction)
	b.WriteString("\n")

	if doc == nil {
		return b.String()
	}

	p := doc.Personal
	line(&b, "Name", p.Name)
	line(&b, "Age", p.Age)

	if len(doc.Experience) > 0 {
		b.WriteString("\nExperience:\n")
		for _, e := range doc.Experience {
			b.WriteString("- ")
			b.WriteString(joinNonEmpty(", ", e.Title, e.Employer, "("+e.Period+")"))
			if e.Description != "" {
				b.WriteString(": ")
				b.WriteString(e.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(doc.Education) > 0 {
		b.WriteString("\nEducation:\n")
		for _, e := range doc.Education {
			b.WriteString("- ")
			b.WriteString(joinNonEmpty(", ", e.Degree, e.Institution, "("+e.Years+")"))
			b.WriteString("\n")
		}
	}

	if len(doc.Skills) > 0 {
		b.WriteString("\nSkills: ")
		b.WriteString(strings.Join(doc.Skills, ", "))
		b.WriteString("\n")
	}

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" && p != "( - )" && p != "()" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
