package errors

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrProvider     = errors.New("provider error")
	ErrGeneration   = errors.New("generation error")
	ErrRateLimited  = errors.New("rate limited")
)

const (
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeProvider     = "PROVIDER_ERROR"
	CodeGeneration   = "GENERATION_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
)

// Error carries a sentinel kind, the underlying cause and a message that is
// safe to show to the user.
type Error struct {
	Kind    error
	Err     error
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func Wrap(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    CodeInternal,
	}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: message, Code: CodeInvalidInput}
}

func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message, Code: CodeNotFound}
}

// Provider reports a transport, auth or status failure from an upstream API.
func Provider(err error, message string) *Error {
	return &Error{Kind: ErrProvider, Err: err, Message: message, Code: CodeProvider}
}

func Generation(err error, message string) *Error {
	return &Error{Kind: ErrGeneration, Err: err, Message: message, Code: CodeGeneration}
}

// RateLimited reports a usage gate refusal. The reason is shown verbatim.
func RateLimited(reason string) *Error {
	return &Error{Kind: ErrRateLimited, Message: reason, Code: CodeRateLimited}
}

// CodeOf returns the machine readable code of err, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}
