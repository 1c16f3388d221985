package normalizer

import (
	"bytes"
	"net/textproto"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/customeros/maildigest/dto"
	mderrors "github.com/customeros/maildigest/internal/errors"
)

func normalizeMIME(raw dto.RawMessage) (*dto.NormalizedEmail, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw.MIME))
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ErrProtocol, err, "failed to parse message "+raw.ID)
	}

	email := &dto.NormalizedEmail{
		ID:          raw.ID,
		Subject:     strings.TrimSpace(envelope.GetHeader("Subject")),
		Sender:      mimeSender(envelope),
		Attachments: []dto.Attachment{},
		Headers:     mimeHeaders(envelope),
	}

	var body strings.Builder
	walkParts(envelope.Root, func(part *enmime.Part) {
		if hasSevereError(part) {
			return
		}
		if part.FileName != "" {
			email.Attachments = append(email.Attachments, dto.Attachment{
				Filename: part.FileName,
				MimeType: part.ContentType,
				Ref:      raw.ID + "/" + part.PartID,
			})
			return
		}
		if isLeafPlainText(part) {
			body.Write(part.Content)
		}
	})
	email.Body = body.String()

	return email, nil
}

// walkParts visits the tree depth-first in document order.
func walkParts(part *enmime.Part, visit func(*enmime.Part)) {
	for p := part; p != nil; p = p.NextSibling {
		visit(p)
		if p.FirstChild != nil {
			walkParts(p.FirstChild, visit)
		}
	}
}

func isLeafPlainText(part *enmime.Part) bool {
	if part.FirstChild != nil {
		return false
	}
	// messages without a Content-Type header default to text/plain
	return part.ContentType == "" || isPlainText(part.ContentType)
}

func hasSevereError(part *enmime.Part) bool {
	for _, e := range part.Errors {
		if e != nil && e.Severe {
			return true
		}
	}
	return false
}

func mimeSender(envelope *enmime.Envelope) string {
	addresses, err := envelope.AddressList("From")
	if err == nil && len(addresses) > 0 {
		return cleanSender(addresses[0].Address)
	}
	return cleanSender(envelope.GetHeader("From"))
}

func mimeHeaders(envelope *enmime.Envelope) map[string][]string {
	headers := make(map[string][]string)
	for _, key := range envelope.GetHeaderKeys() {
		headers[textproto.CanonicalMIMEHeaderKey(key)] = envelope.GetHeaderValues(key)
	}
	return headers
}
