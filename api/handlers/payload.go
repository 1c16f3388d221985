package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	api_errors "github.com/customeros/maildigest/api/errors"
	"github.com/customeros/maildigest/dto"
	mderrors "github.com/customeros/maildigest/internal/errors"
	"github.com/customeros/maildigest/internal/utils"
)

// EmailRequest is the strict payload of /api/process-email.
type EmailRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
	Sender  string `json:"sender" binding:"required"`
}

// EmailPayload accepts both the {subject, body, sender} and the
// {from_email, content} shapes.
type EmailPayload struct {
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Sender      string            `json:"sender"`
	FromEmail   string            `json:"from_email"`
	Content     string            `json:"content"`
	Attachments []AttachmentInput `json:"attachments"`
}

type WebhookRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type NewsletterRequest struct {
	Subject   string `json:"subject"`
	FromEmail string `json:"from_email" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// AttachmentInput is either a bare filename or an attachment object.
type AttachmentInput struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
}

func (a *AttachmentInput) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Filename = name
		return nil
	}
	type plain AttachmentInput
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New("attachment must be a filename or an object with a filename")
	}
	*a = AttachmentInput(obj)
	return nil
}

func (p *EmailPayload) validate() error {
	fields := api_errors.NewFieldErrors()
	if p.body() == "" && strings.TrimSpace(p.Subject) == "" {
		fields.Add("body", "one of body, content or subject is required")
	}
	for i, a := range p.Attachments {
		if strings.TrimSpace(a.Filename) == "" {
			fields.Add("attachments", "attachment "+strconv.Itoa(i)+" has no filename")
		}
	}
	return fields.Err()
}

func (p *EmailPayload) body() string {
	if p.Body != "" {
		return p.Body
	}
	return p.Content
}

func (p *EmailPayload) sender() string {
	if p.Sender != "" {
		return p.Sender
	}
	return p.FromEmail
}

func (p *EmailPayload) toEmail(id string) *dto.NormalizedEmail {
	attachments := make([]dto.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		attachments = append(attachments, dto.Attachment{Filename: a.Filename, MimeType: a.MimeType})
	}
	return &dto.NormalizedEmail{
		ID:          id,
		Subject:     p.Subject,
		Body:        p.body(),
		Sender:      p.sender(),
		Attachments: attachments,
	}
}

var errNoData = mderrors.New(mderrors.ErrValidation, api_errors.MessageNoData)

func newRequestEmailID() string {
	return utils.GenerateNanoIDWithPrefix("api", 16)
}

// bindPayload decodes the JSON body into obj. Empty bodies, null and {} are
// rejected as missing data; decoding and binding failures become schema
// errors naming the offending fields.
func bindPayload(c *gin.Context, obj any) error {
	var generic any
	if err := c.ShouldBindBodyWith(&generic, binding.JSON); err != nil {
		if errors.Is(err, io.EOF) {
			return errNoData
		}
		return mderrors.Wrap(mderrors.ErrValidation, err, "malformed JSON")
	}
	if isEmptyPayload(generic) {
		return errNoData
	}
	if _, ok := generic.(map[string]any); !ok {
		fields := api_errors.NewFieldErrors()
		fields.Add("body", "payload must be a JSON object")
		return fields.Err()
	}

	if err := c.ShouldBindBodyWith(obj, binding.JSON); err != nil {
		return schemaError(err)
	}
	return nil
}

// decodeWebhookData applies the same empty and shape checks as bindPayload to
// the data member of a webhook.
func decodeWebhookData(data json.RawMessage, payload *EmailPayload) error {
	if len(data) == 0 {
		return errNoData
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return schemaError(err)
	}
	if isEmptyPayload(generic) {
		return errNoData
	}
	if _, ok := generic.(map[string]any); !ok {
		fields := api_errors.NewFieldErrors()
		fields.Add("data", "data must be a JSON object")
		return fields.Err()
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return schemaError(err)
	}
	return nil
}

func isEmptyPayload(generic any) bool {
	switch v := generic.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func schemaError(err error) error {
	fields := api_errors.NewFieldErrors()

	var validationErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &validationErrs):
		for _, fe := range validationErrs {
			fields.Add(jsonFieldName(fe.Field()), "field is "+fe.Tag())
		}
	case errors.As(err, &typeErr):
		fields.Add(typeErr.Field, "expected "+typeErr.Type.String())
	default:
		fields.Add("body", err.Error())
	}
	return fields.Err()
}

// jsonFieldName converts a Go field name such as FromEmail to from_email.
func jsonFieldName(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
