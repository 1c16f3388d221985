package dto

import "strings"

type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Ref      string `json:"ref,omitempty"`
}

// NormalizedEmail is the source independent view of a message. Body is the
// concatenation of all plain text parts and may be empty.
type NormalizedEmail struct {
	ID          string
	Subject     string
	Body        string
	Sender      string
	Attachments []Attachment
	Headers     map[string][]string
}

func (e *NormalizedEmail) AttachmentNames() []string {
	names := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		names = append(names, a.Filename)
	}
	return names
}

// Header returns the first value of the named header, case-insensitive.
func (e *NormalizedEmail) Header(name string) string {
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (e *NormalizedEmail) HasHeader(name string) bool {
	for k := range e.Headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
