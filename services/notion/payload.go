package notion

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/customeros/maildigest/dto"
	"github.com/customeros/maildigest/internal/enum"
	"github.com/customeros/maildigest/internal/utils"
)

const (
	maxTextLength = 2000

	propertyTaskName    = "Task name"
	propertyStatus      = "Status"
	propertyPriority    = "Priority"
	propertyTaskType    = "Task type"
	propertyDueDate     = "Due date"
	propertyDescription = "Description"
	propertyEffortLevel = "Effort level"

	statusNotStarted   = "Not started"
	taskTypeNewsletter = "Newsletter"
	taskTypeEmail      = "Email"
	effortSmall        = "Small"
)

func text(content string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}}
}

// buildPageRequest maps a processed result onto the task database columns.
func buildPageRequest(databaseID string, result *dto.ProcessedResult, today time.Time) *notionapi.PageCreateRequest {
	title := result.Title
	if title == "" {
		title = result.Subject
	}
	if title == "" {
		title = "Untitled"
	}

	taskType := taskTypeEmail
	if result.IsNewsletter {
		taskType = taskTypeNewsletter
	}

	due := notionapi.Date(today)
	properties := notionapi.Properties{
		propertyTaskName:    &notionapi.TitleProperty{Title: text(utils.FirstRunes(title, maxTextLength))},
		propertyStatus:      &notionapi.StatusProperty{Status: notionapi.Status{Name: statusNotStarted}},
		propertyTaskType:    &notionapi.MultiSelectProperty{MultiSelect: []notionapi.Option{{Name: taskType}}},
		propertyDueDate:     &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &due}},
		propertyDescription: &notionapi.RichTextProperty{RichText: text(utils.FirstRunes(result.Summary, maxTextLength))},
		propertyEffortLevel: &notionapi.SelectProperty{Select: notionapi.Option{Name: effortSmall}},
	}
	if result.Priority != "" && result.Priority != enum.PriorityUnknown {
		properties[propertyPriority] = &notionapi.SelectProperty{Select: notionapi.Option{Name: result.Priority.String()}}
	}

	var children []notionapi.Block
	for _, chunk := range utils.ChunkRunes(result.Summary, maxTextLength) {
		children = append(children, &notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{RichText: text(chunk)},
		})
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
		Children:   children,
	}
}
