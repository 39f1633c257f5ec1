package dispatcher

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// streamRequest is the POST /api/survey/chat/stream body.
type streamRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	TemplateID     string `json:"template_id"`
}

func (r streamRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConversationID, validation.Required),
		validation.Field(&r.Message, validation.Required),
		validation.Field(&r.TemplateID, validation.Required),
	)
}

// continueRequest is the POST /api/survey/chat/continue body.
type continueRequest struct {
	ConversationID string `json:"conversation_id"`
	UserResponse   string `json:"user_response"`
	TemplateID     string `json:"template_id"`
}

func (r continueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConversationID, validation.Required),
		validation.Field(&r.UserResponse, validation.Required),
		validation.Field(&r.TemplateID, validation.Required),
	)
}
