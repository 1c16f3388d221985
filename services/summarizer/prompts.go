package summarizer

import (
	"fmt"
	"strings"

	"github.com/customeros/maildigest/dto"
)

const analysisSystemPrompt = "You are an email analysis assistant. Analyze the email and provide a summary, action items, and priority level."

func analysisPrompt(email *dto.NormalizedEmail) string {
	attachments := "None"
	if names := email.AttachmentNames(); len(names) > 0 {
		attachments = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Subject: %s\n\nBody: %s\n\nSender: %s\n\nAttachments: %s",
		email.Subject, email.Body, email.Sender, attachments)
}

func contentPrompt(email *dto.NormalizedEmail) string {
	return fmt.Sprintf(`Summarize this email content in a concise way:
Subject: %s
Content: %s

Include:
1. Main topics
2. Key points
3. Any important links or resources`, email.Subject, email.Body)
}

func mapPrompt(text string) string {
	return fmt.Sprintf("Write a concise summary of the following:\n\n\n\"%s\"\n\n\nCONCISE SUMMARY:", text)
}

func newsletterPreviewPrompt(text string) string {
	return fmt.Sprintf(`Write a concise summary in less than 500 characters of the text given below. If it is a
newsletter, refer to it as a newsletter. If it isn't a newsletter, simply make summary say "This isn't a newsletter".

TEXT:
%s

SUMMARY OF NEWSLETTER IN LESS THAN 500 CHARACTERS:`, text)
}

func titlePrompt(preview string) string {
	return "Please generate a title in less than 100 characters for the following newsletter summary content: " + preview
}

var titleFunction = dto.FunctionSpec{
	Name:        "summary_title",
	Description: "Generate a title for the given newsletter summary",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Generated title for the summary containing less than 100 characters",
			},
		},
		"required": []string{"title"},
	},
}
