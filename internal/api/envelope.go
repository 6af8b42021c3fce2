package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// envelope is the canonical {success, message, data} body.
// Success is a pointer so bare JSON bodies can be told apart.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
}

// validationItem is one entry of a FastAPI-style 422 detail list
type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// detailText turns a detail field into a sentence
func detailText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []validationItem
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			switch {
			case it.Msg != "" && len(it.Loc) > 0:
				parts = append(parts, fmt.Sprintf("%s: %s", joinLoc(it.Loc), it.Msg))
			case it.Msg != "":
				parts = append(parts, it.Msg)
			case len(it.Loc) > 0:
				parts = append(parts, joinLoc(it.Loc)+": invalid")
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, l := range loc {
		// FastAPI prefixes body fields with "body"
		if s, ok := l.(string); ok && s == "body" && len(loc) > 1 {
			continue
		}
		parts = append(parts, fmt.Sprint(l))
	}
	return strings.Join(parts, ".")
}

// errorMessage extracts the best human-readable reason from an error body
func errorMessage(body []byte, op string, status int) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := detailText(env.Detail); msg != "" {
			return msg
		}
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return fmt.Sprintf("%s failed (%d)", op, status)
}

// unwrapData returns the payload of a 2xx body, normalizing the
// enveloped and bare shapes, or an error for success=false.
func unwrapData(body []byte, op string) (data json.RawMessage, message string, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, "", nil
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, "", &Error{Kind: KindMalformed, Message: "invalid response format from server"}
		}
		return trimmed, "", nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "", &Error{Kind: KindMalformed, Message: "invalid response format from server", Err: err}
	}
	if env.Success == nil {
		// bare object
		return trimmed, env.Message, nil
	}
	if !*env.Success {
		msg := detailText(env.Detail)
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = op + " failed"
		}
		return nil, "", &Error{Kind: KindRejected, Message: msg}
	}
	return env.Data, env.Message, nil
}
