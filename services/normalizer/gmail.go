package normalizer

import (
	"encoding/base64"
	"net/textproto"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/customeros/maildigest/dto"
	mderrors "github.com/customeros/maildigest/internal/errors"
)

func normalizeGmail(raw dto.RawMessage) (*dto.NormalizedEmail, error) {
	payload := raw.Gmail.Payload
	if payload == nil {
		return nil, mderrors.New(mderrors.ErrProtocol, "gmail message "+raw.ID+" has no payload")
	}

	headers := make(map[string][]string)
	for _, h := range payload.Headers {
		if h == nil {
			continue
		}
		key := textproto.CanonicalMIMEHeaderKey(h.Name)
		headers[key] = append(headers[key], h.Value)
	}

	email := &dto.NormalizedEmail{
		ID:          raw.ID,
		Subject:     strings.TrimSpace(exactHeader(payload.Headers, "Subject")),
		Sender:      cleanSender(exactHeader(payload.Headers, "From")),
		Attachments: []dto.Attachment{},
		Headers:     headers,
	}

	var body strings.Builder
	walkGmailParts(payload, func(part *gmail.MessagePart) {
		if part.Filename != "" {
			attachment := dto.Attachment{Filename: part.Filename, MimeType: part.MimeType}
			if part.Body != nil {
				attachment.Ref = part.Body.AttachmentId
			}
			email.Attachments = append(email.Attachments, attachment)
			return
		}
		if len(part.Parts) > 0 || !isPlainText(part.MimeType) || part.Body == nil || part.Body.Data == "" {
			return
		}
		decoded, ok := decodeBody(part.Body.Data)
		if !ok {
			return
		}
		body.Write(decoded)
	})
	email.Body = body.String()

	return email, nil
}

func walkGmailParts(part *gmail.MessagePart, visit func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	visit(part)
	for _, child := range part.Parts {
		walkGmailParts(child, visit)
	}
}

// decodeBody accepts padded and unpadded base64url.
func decodeBody(data string) ([]byte, bool) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, true
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return decoded, true
	}
	return nil, false
}

// exactHeader returns the first header whose name matches exactly, case
// included.
func exactHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && h.Name == name {
			return h.Value
		}
	}
	return ""
}
