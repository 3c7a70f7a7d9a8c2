package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type ChatParams struct {
	ConversationHistory []Message `json:"conversation_history" validate:"required,min=1"`
	SessionID           string    `json:"session_id,omitempty"`
}

type ConfigParams struct {
	Model     string `db:"llm_model" json:"llm_model,omitempty"`
	PromptStr string `db:"prompt_str" json:"prompt_str,omitempty"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *ChatParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func (params *ConfigParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type ChatResponse struct {
	Response string `json:"response"`
}

type UploadResponse struct {
	ExtractedText string `json:"extracted_text"`
	Response      string `json:"response"`
}
