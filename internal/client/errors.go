package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// TokenExpiredCode is the domain status code the API uses for an expired
// access token. It is treated exactly like HTTP 401.
const TokenExpiredCode = 4001

const genericRequestFailure = "Request failed"

// RequestError is a non-2xx API response.
type RequestError struct {
	StatusCode    int
	Status        string
	Message       string
	Code          string
	CorrelationID string
	Body          []byte
}

func (e *RequestError) Error() string {
	if e == nil {
		return genericRequestFailure
	}
	if e.Message != "" {
		return e.Message
	}
	return genericRequestFailure
}

// IsUnauthorized reports whether err is an expired or rejected access token.
func IsUnauthorized(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.StatusCode == http.StatusUnauthorized || reqErr.Code == strconv.Itoa(TokenExpiredCode)
}

// ErrNoCredential is returned by a refresh attempted without a refresh token.
var ErrNoCredential = errors.New("no credential")

// ErrRefreshFailed wraps every refresh failure; the session is cleared when
// it is returned.
var ErrRefreshFailed = errors.New("refresh failed")

// statusEnvelope matches {status:{code,message,remark}} wrappers.
type statusEnvelope struct {
	Message string `json:"message"`
	Status  *struct {
		Code    FlexString `json:"code"`
		Message string     `json:"message"`
		Remark  string     `json:"remark"`
	} `json:"status"`
	Code FlexString `json:"code"`
}

// FlexString decodes both "4001" and 4001.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func decodeEnvelope(body []byte) statusEnvelope {
	var env statusEnvelope
	_ = json.Unmarshal(body, &env)
	return env
}

// domainCode returns the application status code carried in body, if any.
func domainCode(body []byte) string {
	env := decodeEnvelope(body)
	if env.Status != nil && env.Status.Code != "" {
		return string(env.Status.Code)
	}
	return string(env.Code)
}

func newRequestError(statusCode int, status string, body []byte, correlationID string) *RequestError {
	env := decodeEnvelope(body)
	message := strings.TrimSpace(env.Message)
	if message == "" {
		message = genericRequestFailure
	}
	return &RequestError{
		StatusCode:    statusCode,
		Status:        status,
		Message:       message,
		Code:          domainCode(body),
		CorrelationID: correlationID,
		Body:          body,
	}
}

// ServerMessage extracts a descriptive message from a {status:{remark|message,
// code}} envelope, falling back to fallback.
func ServerMessage(err error, fallback string) string {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return fallback
	}
	env := decodeEnvelope(reqErr.Body)
	if env.Status != nil {
		detail := strings.TrimSpace(env.Status.Remark)
		if detail == "" {
			detail = strings.TrimSpace(env.Status.Message)
		}
		if detail != "" {
			if code := strings.TrimSpace(string(env.Status.Code)); code != "" {
				return fmt.Sprintf("%s (%s)", detail, code)
			}
			return detail
		}
	}
	if msg := strings.TrimSpace(env.Message); msg != "" {
		return msg
	}
	return fallback
}
