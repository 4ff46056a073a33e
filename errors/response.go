package errors

import "encoding/json"

// payload is the error body shape understood by the adapter. Both a flat
// {"message", "code"} object and a nested {"error": {...}} envelope are
// accepted.
type payload struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
	Error   *struct {
		Message string    `json:"message"`
		Code    ErrorCode `json:"code"`
	} `json:"error"`
}

// ParsePayload extracts message and code from an error response body. ok is
// false when the body is not shaped as an error payload.
func ParsePayload(body []byte) (message string, code ErrorCode, ok bool) {
	if len(body) == 0 {
		return "", "", false
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", "", false
	}
	if p.Error != nil && (p.Error.Message != "" || p.Error.Code != "") {
		return p.Error.Message, p.Error.Code, true
	}
	if p.Message != "" || p.Code != "" {
		return p.Message, p.Code, true
	}
	return "", "", false
}

// FromResponse builds the normalized error for a non-2xx response.
func FromResponse(status int, body []byte) *Error {
	message, code, _ := ParsePayload(body)
	return Server(status, message, code)
}
