package resolver

import apperrors "github.com/senzing-garage/stream-loader/pkg/errors"

// Error codes an Engine implementation may attach to a returned
// *apperrors.AppError so the facade and dispatcher can classify the
// failure per the specification's resolver-error taxonomy (§7.4):
//   - CodeNotInitialized: the engine handle was never (re)initialized. Fatal.
//   - CodeGenericException: a transient/generic engine exception. Retried
//     once after a configuration-drift re-check, then routed to the
//     failure sink.
//   - Anything else (including a plain error with no AppError code) is
//     classified as "other": routed to the failure sink without retry.
const (
	CodeNotInitialized   = "RESOLVER_NOT_INITIALIZED"
	CodeGenericException = "RESOLVER_GENERIC_EXCEPTION"
)

// ErrNotInitialized builds the fatal "engine not initialized" error.
func ErrNotInitialized(cause error) *apperrors.AppError {
	return apperrors.New(CodeNotInitialized, "resolver engine is not initialized", cause)
}

// ErrGenericException builds the retryable "generic module exception"
// error.
func ErrGenericException(cause error) *apperrors.AppError {
	return apperrors.New(CodeGenericException, "resolver engine raised a generic exception", cause)
}

// Kind classifies an error returned from an Engine call.
type Kind int

const (
	KindOther Kind = iota
	KindNotInitialized
	KindGenericException
)

// Classify inspects err for one of the two distinguished resolver-error
// codes. Any error without a matching AppError code is KindOther.
func Classify(err error) Kind {
	switch apperrors.Code(err) {
	case CodeNotInitialized:
		return KindNotInitialized
	case CodeGenericException:
		return KindGenericException
	default:
		return KindOther
	}
}
