package httpx

import (
	"encoding/json"
	"strings"
)

// APIError decodes the error envelopes used by the supported providers:
//
//	{"error": {"message": "...", "code": ...}}     Graph API, TikTok
//	{"error": "invalid_grant", "error_description": "..."}   OAuth token endpoints
//	{"error_message": "..."}                        Instagram Basic Display
//	{"message": "..."} / {"detail": "..."}          LinkedIn, Twitter v2
//	{"errors": [{"message": "..."}]}                Twitter v2
type APIError struct {
	Code    string
	Type    string
	Message string
}

// Present reports whether the envelope carries an actual error. TikTok
// always sends an error object and uses code "ok" for success.
func (e *APIError) Present() bool {
	if e == nil {
		return false
	}
	if strings.EqualFold(e.Code, "ok") || (e.Code == "0" && e.Message == "") {
		return false
	}
	return e.Code != "" || e.Message != "" || e.Type != ""
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return e.Type
}

// UnmarshalJSON accepts the "error" value as either a string or an object.
func (e *APIError) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		e.Code = s
		return nil
	}
	var obj struct {
		Code    json.RawMessage `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	e.Type = obj.Type
	e.Message = obj.Message
	if code := strings.Trim(string(obj.Code), `"`); code != "null" {
		e.Code = code
	}
	return nil
}

type envelope struct {
	Error            *APIError `json:"error"`
	ErrorDescription string    `json:"error_description"`
	ErrorMessage     string    `json:"error_message"`
	Message          string    `json:"message"`
	Detail           string    `json:"detail"`
	Errors           []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ErrorMessage extracts a human readable message from an error body.
// It returns "" when nothing recognizable is found.
func ErrorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	switch {
	case env.ErrorDescription != "":
		return env.ErrorDescription
	case env.Error != nil && env.Error.Present():
		return env.Error.Error()
	case env.ErrorMessage != "":
		return env.ErrorMessage
	case env.Detail != "":
		return env.Detail
	case env.Message != "":
		return env.Message
	case len(env.Errors) > 0:
		return env.Errors[0].Message
	}
	return ""
}
