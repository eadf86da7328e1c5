package notion

import (
	"context"
	"errors"
	"strings"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/infrastructure/metrics"
	"github.com/garyjia/notion-invoice/internal/infrastructure/retry"
)

// substringRules are matched in order against the lower-cased error text.
var substringRules = []struct {
	kind     apperr.Kind
	patterns []string
}{
	{apperr.KindAuth, []string{"unauthorized", "api token"}},
	{apperr.KindNotFound, []string{"object_not_found", "not found"}},
	{apperr.KindRateLimited, []string{"rate_limited", "too_many_requests"}},
	{apperr.KindForbidden, []string{"restricted_resource"}},
	{apperr.KindNetwork, []string{"econnrefused", "connection refused", "connection reset", "no such host", "network"}},
}

// SubstringClassifier classifies errors by the HTTP status and code of an
// *APIError, and by message text for errors without a response.
type SubstringClassifier struct{}

// NewClassifier returns the default classifier.
func NewClassifier() *SubstringClassifier {
	return &SubstringClassifier{}
}

// Classify implements port.ErrorClassifier.
func (SubstringClassifier) Classify(err error) apperr.Kind {
	if err == nil {
		return apperr.KindUnknown
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Kind
	}

	var te *retry.TimeoutError
	if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.KindTimeout
	}

	// A response status is authoritative. Message text is only consulted for
	// failures that never got one.
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return classifyResponse(apiErr)
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range substringRules {
		for _, p := range rule.patterns {
			if strings.Contains(msg, p) {
				return rule.kind
			}
		}
	}

	return apperr.KindUnknown
}

// responseCodes maps Notion error codes onto kinds for statuses that do not
// decide on their own
var responseCodes = map[string]apperr.Kind{
	"unauthorized":        apperr.KindAuth,
	"restricted_resource": apperr.KindForbidden,
	"object_not_found":    apperr.KindNotFound,
	"rate_limited":        apperr.KindRateLimited,
}

func classifyResponse(e *APIError) apperr.Kind {
	switch e.StatusCode {
	case 401:
		return apperr.KindAuth
	case 403:
		return apperr.KindForbidden
	case 404:
		return apperr.KindNotFound
	case 408:
		return apperr.KindTimeout
	case 429:
		return apperr.KindRateLimited
	}
	if kind, ok := responseCodes[e.Code]; ok {
		return kind
	}
	return apperr.KindUnknown
}

// Normalize converts a raw failure into a classified *apperr.Error.
// Errors that are already classified pass through unchanged.
func Normalize(op string, err error, classifier port.ErrorClassifier) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if classifier == nil {
		classifier = SubstringClassifier{}
	}
	kind := classifier.Classify(err)
	metrics.RecordGatewayError(string(kind))
	return apperr.New(kind, op, err)
}

var _ port.ErrorClassifier = SubstringClassifier{}
