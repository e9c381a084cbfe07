package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	IngestErrorBadInput          = "INGEST_BAD_INPUT"
	IngestErrorSignatureRejected = "INGEST_SIGNATURE_REJECTED"
	IngestErrorChallengeRejected = "INGEST_CHALLENGE_REJECTED"
	IngestErrorNotFound          = "INGEST_NOT_FOUND"
	IngestErrorPersistFailed     = "INGEST_PERSIST_FAILED"
	IngestErrorInternal          = "INGEST_INTERNAL_ERROR"
)

func ingestErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureIngestErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newIngestError(err.Error(), goerrors.CategoryAuth, IngestErrorSignatureRejected)
	case strings.Contains(msg, "verify token"), strings.Contains(msg, "challenge"):
		return newIngestError(err.Error(), goerrors.CategoryAuthz, IngestErrorChallengeRejected)
	case strings.Contains(msg, "not found"):
		return newIngestError(err.Error(), goerrors.CategoryNotFound, IngestErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newIngestError(err.Error(), goerrors.CategoryBadInput, IngestErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureIngestErrorEnvelope(mapped)
}

// MapError normalizes any error into the ingest error envelope.
func MapError(err error) *goerrors.Error {
	return ingestErrorMapper(err)
}

func newIngestError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureIngestErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureIngestErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = ingestHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultIngestTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultIngestTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return IngestErrorBadInput
	case goerrors.CategoryNotFound:
		return IngestErrorNotFound
	case goerrors.CategoryAuth:
		return IngestErrorSignatureRejected
	case goerrors.CategoryAuthz:
		return IngestErrorChallengeRejected
	case goerrors.CategoryOperation:
		return IngestErrorPersistFailed
	default:
		return IngestErrorInternal
	}
}

func ingestHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusForbidden
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
