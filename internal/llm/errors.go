package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind tells the generation engine how to react to a provider failure.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindOverloaded  ErrorKind = "overloaded"
	KindClient      ErrorKind = "client" // bad request or unknown model, retrying the same model is pointless
	KindOther       ErrorKind = "other"
)

// ProviderError is a provider failure normalized into a kind plus the raw code and message.
type ProviderError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("llm provider error (%s, %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("llm provider error (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure should be retried on the same model after a back-off.
func (k ErrorKind) Transient() bool {
	return k == KindRateLimited || k == KindOverloaded
}

// Classify maps any error returned by a Provider onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if code, status, ok := apiErrorFields(err); ok {
		if kind := classifyCode(code, status); kind != "" {
			return kind
		}
	}
	return classifyMessage(err.Error())
}

func normalize(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &ProviderError{Kind: Classify(err), Message: err.Error(), Err: err}
	if code, _, ok := apiErrorFields(err); ok {
		pe.Code = code
	}
	return pe
}

func apiErrorFields(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, true
	}
	return 0, "", false
}

func classifyCode(code int, status string) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return KindRateLimited
	case code == http.StatusServiceUnavailable || status == "UNAVAILABLE":
		return KindOverloaded
	case code == http.StatusBadRequest || code == http.StatusNotFound ||
		status == "INVALID_ARGUMENT" || status == "NOT_FOUND":
		return KindClient
	}
	return ""
}

var (
	rateLimitPattern = regexp.MustCompile(`\b429\b|resource_exhausted|rate ?limit|\bquota\b`)
	overloadPattern  = regexp.MustCompile(`\b503\b|\bunavailable\b|overloaded`)
	clientPattern    = regexp.MustCompile(`\b(400|404)\b|invalid[ _]argument|\bnot_found\b|models/\S+ is not found|\bmodel \S+ (is )?not found`)
)

// classifyMessage is the fallback for errors that carry no structured code.
// Codes only count as whole words so that numbers like 4000 do not match.
func classifyMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case rateLimitPattern.MatchString(lower):
		return KindRateLimited
	case overloadPattern.MatchString(lower):
		return KindOverloaded
	case clientPattern.MatchString(lower):
		return KindClient
	}
	return KindOther
}
