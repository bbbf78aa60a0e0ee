package entity

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable failure classification surfaced to callers
type ErrorCode string

const (
	ErrorCodeInvalidCUFE     ErrorCode = "INVALID_CUFE"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeFetchError      ErrorCode = "FETCH_ERROR"
	ErrorCodeParseError      ErrorCode = "PARSE_ERROR"
	ErrorCodeAlreadyImported ErrorCode = "ALREADY_IMPORTED"
	ErrorCodeUnknown         ErrorCode = "UNKNOWN"
)

// ImportError carries a classified failure through the pipeline
type ImportError struct {
	Code    ErrorCode
	Message string
	// Status is the upstream HTTP status for FETCH_ERROR and NOT_FOUND
	Status int
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// NewImportError builds a classified error
func NewImportError(code ErrorCode, message string, err error) *ImportError {
	return &ImportError{Code: code, Message: message, Err: err}
}

// CodeOf classifies any error. Unclassified errors are UNKNOWN.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ErrorCodeUnknown
}

var userMessages = map[ErrorCode]string{
	ErrorCodeInvalidCUFE:     "El CUFE o enlace QR no es válido. Verifique el código e intente de nuevo.",
	ErrorCodeNotFound:        "No se encontró la factura en la DGI. Verifique el CUFE.",
	ErrorCodeFetchError:      "No se pudo consultar la DGI en este momento. Intente más tarde.",
	ErrorCodeParseError:      "No se pudo leer la factura. El formato de la DGI pudo haber cambiado.",
	ErrorCodeAlreadyImported: "Esta factura ya fue importada.",
	ErrorCodeUnknown:         "Ocurrió un error inesperado al procesar la factura.",
}

// UserMessage returns the localized user-facing text for a code
func UserMessage(code ErrorCode) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[ErrorCodeUnknown]
}
