package pluginruntime

import "strconv"

// Result is the status code returned across the plugin boundary.
// Zero is success, negative values are errors.
type Result int32

const (
	OK                    Result = 0
	OKCompletionPending   Result = -1
	ErrorFailed           Result = -2
	ErrorAborted          Result = -3
	ErrorBadArgument      Result = -4
	ErrorBadResource      Result = -5
	ErrorNoInterface      Result = -6
	ErrorNoAccess         Result = -7
	ErrorNoMemory         Result = -8
	ErrorInProgress       Result = -11
	ErrorNotSupported     Result = -12
	ErrorBlocksMainThread Result = -13
)

var resultNames = map[Result]string{
	OK:                    "ok",
	OKCompletionPending:   "completion_pending",
	ErrorFailed:           "failed",
	ErrorAborted:          "aborted",
	ErrorBadArgument:      "bad_argument",
	ErrorBadResource:      "bad_resource",
	ErrorNoInterface:      "no_interface",
	ErrorNoAccess:         "no_access",
	ErrorNoMemory:         "no_memory",
	ErrorInProgress:       "in_progress",
	ErrorNotSupported:     "not_supported",
	ErrorBlocksMainThread: "blocks_main_thread",
}

func (r Result) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return "result(" + strconv.Itoa(int(r)) + ")"
}

// CompletionCallback is invoked on the control thread when an asynchronous
// operation finishes. A zero value means the caller wants blocking behavior.
type CompletionCallback struct {
	Func func(Result)
}

// IsSet reports whether the callback carries a function.
func (c CompletionCallback) IsSet() bool { return c.Func != nil }

// Run invokes the callback if set.
func (c CompletionCallback) Run(r Result) {
	if c.Func != nil {
		c.Func(r)
	}
}
