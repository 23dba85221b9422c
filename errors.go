package bptree

import "fmt"

// Code identifies a failure kind. Every fallible API call returns a
// distinct Code alongside its error.
type Code int

const (
	CodeOK Code = iota

	// Configuration
	CodeTypeError // bad key/payload descriptor

	// Resource
	CodeTooManyFiles
	CodeTooManyScans
	CodeFileNotFound
	CodeScansStillOpen
	CodeDestroyStillOpen

	// Storage
	CodeCreateError
	CodeOpenError
	CodeCloseError
	CodeRemoveError
	CodeAllocateError
	CodeGetBlockError
	CodeBlockCounterError
	CodeUnpinError

	// Logic
	CodeInsertError
	CodeInvalidScan
	CodeFatalError

	// Sentinel
	CodeEndOfStream

	// Lifecycle and handle checks
	CodeInitError
	CodeNotOpen
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeTypeError:
		return "type-error"
	case CodeTooManyFiles:
		return "too-many-files"
	case CodeTooManyScans:
		return "too-many-scans"
	case CodeFileNotFound:
		return "file-not-found"
	case CodeScansStillOpen:
		return "scans-still-open"
	case CodeDestroyStillOpen:
		return "destroy-still-open"
	case CodeCreateError:
		return "create-error"
	case CodeOpenError:
		return "open-error"
	case CodeCloseError:
		return "close-error"
	case CodeRemoveError:
		return "remove-error"
	case CodeAllocateError:
		return "allocate-error"
	case CodeGetBlockError:
		return "get-block-error"
	case CodeBlockCounterError:
		return "block-counter-error"
	case CodeUnpinError:
		return "unpin-error"
	case CodeInsertError:
		return "insert-error"
	case CodeInvalidScan:
		return "invalid-scan"
	case CodeFatalError:
		return "fatal-error"
	case CodeEndOfStream:
		return "end-of-stream"
	case CodeInitError:
		return "init-error"
	case CodeNotOpen:
		return "not-open"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error wraps a Code with the error that produced it (if any) and an
// optional path, so that `errors.As` callers can recover the Code while
// `%v`/`Error()` still reads like a normal Go error.
type Error struct {
	Code Code
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("bptree: %s: %s: %v", e.Path, e.Code, e.Err)
		}
		return fmt.Sprintf("bptree: %s: %s", e.Path, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("bptree: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("bptree: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(code Code, path string, err error) *Error {
	e := &Error{Code: code, Path: path, Err: err}
	lastError = e
	return e
}

// lastError is a process-wide record of the most recent failure, kept
// alongside each call's own returned Code. It lets callers that only
// check status codes recover the full failure afterwards, so it is kept
// as a read-only accessor rather than threaded through every signature.
var lastError *Error

// LastError returns the most recent failure recorded by any library call
// in this process, or nil if none has failed since the last Init.
// Shutdown leaves it unchanged.
func LastError() *Error { return lastError }
