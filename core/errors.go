package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CallbridgeErrorBadInput        = "CALLBRIDGE_BAD_INPUT"
	CallbridgeErrorNotFound        = "CALLBRIDGE_NOT_FOUND"
	CallbridgeErrorRejected        = "CALLBRIDGE_REJECTED"
	CallbridgeErrorStoreFailed     = "CALLBRIDGE_STORE_FAILED"
	CallbridgeErrorSignalingFailed = "CALLBRIDGE_SIGNALING_FAILED"
	CallbridgeErrorInternal        = "CALLBRIDGE_INTERNAL_ERROR"
)

func callbridgeErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCallbridgeErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "connection not found"):
		return newCallbridgeError(err.Error(), goerrors.CategoryNotFound, CallbridgeErrorNotFound)
	case strings.Contains(msg, "signaling"), strings.Contains(msg, "registration"):
		return newCallbridgeError(err.Error(), goerrors.CategoryOperation, CallbridgeErrorSignalingFailed)
	case strings.Contains(msg, "store"), strings.Contains(msg, "persist"):
		return newCallbridgeError(err.Error(), goerrors.CategoryOperation, CallbridgeErrorStoreFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newCallbridgeError(err.Error(), goerrors.CategoryBadInput, CallbridgeErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCallbridgeErrorEnvelope(mapped)
}

func newCallbridgeError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureCallbridgeErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureCallbridgeErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = callbridgeHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCallbridgeTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCallbridgeTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CallbridgeErrorBadInput
	case goerrors.CategoryNotFound:
		return CallbridgeErrorNotFound
	case goerrors.CategoryConflict:
		return CallbridgeErrorRejected
	case goerrors.CategoryOperation:
		return CallbridgeErrorSignalingFailed
	default:
		return CallbridgeErrorInternal
	}
}

func callbridgeHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
