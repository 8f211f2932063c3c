package lcferrors

import "fmt"

// ErrorMessage maps a platform error code to the HTTP status and default
// message returned to API clients.
type ErrorMessage struct {
	HTTPCode int
	Message  string
}

// LCFError is the error type passed between the catalog, the stub generator
// and the CLI. Error() returns the bare code so it can be matched against
// ErrorLookup at the HTTP boundary; Detail carries the human explanation.
type LCFError struct {
	Code   string
	Detail string
}

func (e *LCFError) Error() string {
	return e.Code
}

// NewError creates an LCFError with the given code and detail message.
func NewError(code string, detail string) *LCFError {
	return &LCFError{Code: code, Detail: detail}
}

// NewErrorf creates an LCFError with a formatted detail message.
func NewErrorf(code string, format string, args ...any) *LCFError {
	return &LCFError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// ResponseError is the JSON envelope used to report failures over the
// message bus. Code is a pointer so an absent field distinguishes a success
// payload from an error payload.
type ResponseError struct {
	Code   *string `json:"Code,omitempty"`
	Detail *string `json:"Detail,omitempty"`
}

var (
	ErrorAuthFailure           = "AuthFailure"
	ErrorValidationError       = "ValidationError"
	ErrorMissingParameter      = "MissingParameter"
	ErrorInvalidParameterValue = "InvalidParameterValue"
	ErrorIntegrationNotFound   = "IntegrationNotFound"
	ErrorPackageNotFound       = "PackageNotFound"
	ErrorPackageCorrupt        = "PackageCorrupt"
	ErrorFlowMalformed         = "FlowMalformed"
	ErrorUnsupportedLanguage   = "UnsupportedLanguage"
	ErrorGenerationFailure     = "GenerationFailure"
	ErrorStorageFailure        = "StorageFailure"
	ErrorServiceUnavailable    = "ServiceUnavailable"
	ErrorInternalFailure       = "InternalFailure"
)

var ErrorLookup = map[string]ErrorMessage{
	ErrorAuthFailure: {
		HTTPCode: 401,
		Message:  "The provided auth key is not valid for this catalog.",
	},
	ErrorValidationError: {
		HTTPCode: 400,
		Message:  "The request body is not well formed.",
	},
	ErrorMissingParameter: {
		HTTPCode: 400,
		Message:  "A required parameter is missing from the request.",
	},
	ErrorInvalidParameterValue: {
		HTTPCode: 400,
		Message:  "A parameter contains a value that is not valid.",
	},
	ErrorIntegrationNotFound: {
		HTTPCode: 404,
		Message:  "The requested integration does not exist in the catalog.",
	},
	ErrorPackageNotFound: {
		HTTPCode: 404,
		Message:  "The requested package archive does not exist in the catalog.",
	},
	ErrorPackageCorrupt: {
		HTTPCode: 400,
		Message:  "The package archive is corrupt or contains illegal paths.",
	},
	ErrorFlowMalformed: {
		HTTPCode: 400,
		Message:  "A flow definition in the package could not be parsed.",
	},
	ErrorUnsupportedLanguage: {
		HTTPCode: 400,
		Message:  "The requested target language is not supported.",
	},
	ErrorGenerationFailure: {
		HTTPCode: 500,
		Message:  "Stub generation failed. Check the daemon logs for details.",
	},
	ErrorStorageFailure: {
		HTTPCode: 500,
		Message:  "The package store is unavailable or returned an error.",
	},
	ErrorServiceUnavailable: {
		HTTPCode: 503,
		Message:  "A backend service required for this request is unavailable.",
	},
	ErrorInternalFailure: {
		HTTPCode: 500,
		Message:  "An internal error occurred. Retry your request.",
	},
}
