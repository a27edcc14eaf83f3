package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	pluginruntime "github.com/wippyai/plugin-runtime"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAllocate Phase = "allocate" // resource allocation
	PhaseAcquire  Phase = "acquire"  // handle lookup
	PhaseLink     Phase = "link"     // parent linking
	PhaseOpen     Phase = "open"     // loader open
	PhaseRead     Phase = "read"     // body reads
	PhaseFetch    Phase = "fetch"    // network collaborator
	PhaseStore    Phase = "store"    // byte store
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseHost     Phase = "host"     // plugin ABI
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle    Kind = "invalid_handle"
	KindTypeMismatch     Kind = "type_mismatch"
	KindInvalidInput     Kind = "invalid_input"
	KindUnsupported      Kind = "unsupported"
	KindInProgress       Kind = "in_progress"
	KindBlocksMainThread Kind = "blocks_main_thread"
	KindIO               Kind = "io"
	KindNotLoaded        Kind = "not_loaded"
	KindFetchFailed      Kind = "fetch_failed"
	KindClosed           Kind = "closed"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Handle int32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		b.WriteString(" handle=")
		b.WriteString(strconv.Itoa(int(e.Handle)))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the offending resource handle
func (b *Builder) Handle(h int32) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an error for a handle that is out of range, expunged,
// or of the wrong kind for the operation.
func InvalidHandle(phase Phase, h int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: h,
		Detail: "handle is not live",
	}
}

// TypeMismatch creates an error for a live handle holding another resource kind
func TypeMismatch(phase Phase, h int32, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Handle: h,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InProgress creates an error for an operation that was already started
func InProgress(phase Phase, h int32, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInProgress,
		Handle: h,
		Detail: what,
	}
}

// BlocksMainThread creates an error for a blocking call issued on the control thread
func BlocksMainThread(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBlocksMainThread,
		Detail: fmt.Sprintf("%s would block the control thread", what),
	}
}

// IO wraps a byte store or file error
func IO(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// FetchFailed wraps a network collaborator error
func FetchFailed(url string, cause error) *Error {
	return &Error{
		Phase:  PhaseFetch,
		Kind:   KindFetchFailed,
		Detail: fmt.Sprintf("fetch %s", url),
		Cause:  cause,
	}
}

// Closed creates an error for use after shutdown
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

var kindResults = map[Kind]pluginruntime.Result{
	KindInvalidHandle:    pluginruntime.ErrorBadResource,
	KindTypeMismatch:     pluginruntime.ErrorBadResource,
	KindInvalidInput:     pluginruntime.ErrorBadArgument,
	KindUnsupported:      pluginruntime.ErrorNotSupported,
	KindInProgress:       pluginruntime.ErrorInProgress,
	KindBlocksMainThread: pluginruntime.ErrorBlocksMainThread,
	KindClosed:           pluginruntime.ErrorAborted,
}

// Result maps err onto the plugin-facing result code. A nil error is OK;
// errors outside this package map to ErrorFailed.
func Result(err error) pluginruntime.Result {
	if err == nil {
		return pluginruntime.OK
	}
	var e *Error
	if stderrors.As(err, &e) {
		if r, ok := kindResults[e.Kind]; ok {
			return r
		}
	}
	return pluginruntime.ErrorFailed
}
