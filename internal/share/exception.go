package share

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/voidcell/enclave/internal/infrastructure/logging"
)

// Exception is a script failure rendered down to plain text so it can cross
// an isolate boundary. Either field may be empty: a message-only failure is
// valid, and both empty denotes a failure with no renderable content. The
// strings are independently owned; nothing of the failing isolate survives
// in them.
type Exception struct {
	Name    string
	Message string
}

// CaptureException renders an in-flight failure into an Exception. For a
// thrown script error the type name and message are extracted from the
// thrown value; for engine-level failures the Go error text becomes the
// message. If rendering itself fails, the result degrades to an empty
// Exception and a diagnostic goes to the process error stream, since a broken
// bridge must never raise a second failure that masks the original.
func CaptureException(err error) (exc *Exception) {
	if err == nil {
		return nil
	}

	exc = &Exception{}
	defer func() {
		if r := recover(); r != nil {
			*exc = Exception{}
			logging.Diagnostic("script raised an uncaught exception (unable to render failure: %v)", r)
		}
	}()

	switch failure := err.(type) {
	case *goja.Exception:
		exc.Name, exc.Message = renderThrown(failure.Value())
		if exc.Name == "" && exc.Message == "" {
			exc.Message = failure.Error()
		}
	case *goja.InterruptedError:
		exc.Name = "InterruptedError"
		exc.Message = failure.String()
	case *goja.StackOverflowError:
		exc.Name = "RangeError"
		exc.Message = "stack overflow"
	case *goja.CompilerSyntaxError:
		exc.Name, exc.Message = splitRendered(failure.Error())
	default:
		exc.Message = err.Error()
	}

	return exc
}

// splitRendered splits "SomeError: message" style text back into its parts.
// Text without a leading error-type name becomes a bare message.
func splitRendered(text string) (name, message string) {
	idx := strings.Index(text, ": ")
	if idx <= 0 {
		return "", text
	}
	head := text[:idx]
	if !strings.HasSuffix(head, "Error") || strings.ContainsAny(head, " \t") {
		return "", text
	}
	return head, text[idx+2:]
}

// renderThrown extracts (name, message) from a thrown value. Error objects
// carry both; primitive throws ("throw 42") render as a bare message.
func renderThrown(v goja.Value) (name, message string) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", ""
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return "", v.String()
	}

	if n := obj.Get("name"); n != nil && !goja.IsUndefined(n) {
		name = n.String()
	}
	if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
		message = m.String()
	}
	if name == "" && message == "" {
		message = obj.String()
	}
	return name, message
}

// Empty reports whether the exception carries no content at all.
func (e *Exception) Empty() bool {
	return e == nil || (e.Name == "" && e.Message == "")
}

// Render formats the pair the way it is re-raised in the caller's context:
// "name: message" when both are present, the bare name or bare message when
// only one is, and empty when neither survived the bridge.
func (e *Exception) Render() string {
	switch {
	case e == nil:
		return ""
	case e.Name != "" && e.Message != "":
		return e.Name + ": " + e.Message
	case e.Name != "":
		return e.Name
	default:
		return e.Message
	}
}
