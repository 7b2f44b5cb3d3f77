package materialize

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/store"
)

// PrintOptions controls human-readable rendering.
type PrintOptions struct {
	// Verbose appends a low-level code-location annotation to elements
	// whose method currently has compiled code.
	Verbose bool
}

// noTraceMarker is rendered when a throwable carries no backtrace at all
// (tracing disabled, or nothing was captured).
const noTraceMarker = "\t<<no stack trace available>>"

// Print renders the throwable's message and stack trace, then walks the
// cause chain, each cause prefixed with "Caused by: ". The output shape:
//
//	com.example.Boom: it broke
//		at com.example.Worker.run(app@v1.2.0/Worker.amb:41)
//		at com.example.Main.main(Main.amb:12)
//	Caused by: com.example.Inner: root cause
//		at ...
//
// Any fault raised while resolving a cause ends the chain silently;
// printing is best effort and write errors are ignored.
//
//nolint:errcheck // best-effort rendering, matching the report formatter
func Print(w io.Writer, th frame.Throwable, opts PrintOptions) {
	printHeader(w, th)
	for th != nil {
		st, ok := th.Backtrace().(*store.Store)
		if !ok {
			fmt.Fprintln(w, noTraceMarker)
			return
		}
		it := st.Iterate()
		for {
			r, ok := it.Next()
			if !ok {
				break
			}
			printElement(w, r, opts)
		}

		next := safeCause(th)
		if next != nil {
			fmt.Fprint(w, "Caused by: ")
			printHeader(w, next)
		}
		th = next
	}
}

// printHeader writes "ClassName: message" (message omitted when absent).
//
//nolint:errcheck // best-effort rendering
func printHeader(w io.Writer, th frame.Throwable) {
	if msg, ok := th.Message(); ok {
		fmt.Fprintf(w, "%s: %s\n", th.Class().Name(), msg)
	} else {
		fmt.Fprintf(w, "%s\n", th.Class().Name())
	}
}

// printElement renders one stored frame:
//
//	\tat Class.method(module@version/File:line)
//
// with "Redefined", "Native Method" or "Unknown Source" standing in when
// precise location information is unavailable.
//
//nolint:errcheck // best-effort rendering
func printElement(w io.Writer, r store.Record, opts PrintOptions) {
	var buf strings.Builder
	buf.WriteString("\tat ")
	buf.WriteString(r.Mirror.Name())
	buf.WriteByte('.')
	buf.WriteString(string(r.Name))
	buf.WriteByte('(')

	if mod, ok := r.Mirror.Module(); ok {
		buf.WriteString(mod.Name())
		if v, vok := mod.Version(); vok {
			buf.WriteByte('@')
			buf.WriteString(moduleVersion(v))
		}
		buf.WriteByte('/')
	}

	res := resolve(r)
	switch {
	case !res.matches:
		buf.WriteString("Redefined)")
	case res.method.LineNumber(r.BCI) == LineNative:
		buf.WriteString("Native Method)")
	default:
		line := res.method.LineNumber(r.BCI)
		switch {
		case res.hasSource && line != LineUnknown:
			fmt.Fprintf(&buf, "%s:%d)", res.source, line)
		case res.hasSource:
			fmt.Fprintf(&buf, "%s)", res.source)
		default:
			buf.WriteString("Unknown Source)")
		}
		if opts.Verbose {
			if c, ok := res.method.(frame.Compiled); ok {
				if addr, ok := c.CodeAddress(); ok {
					fmt.Fprintf(&buf, "(code 0x%x)", addr)
				}
			}
		}
	}

	fmt.Fprintln(w, buf.String())
}

// moduleVersion canonicalizes a semver module version for display and
// passes anything else through untouched.
func moduleVersion(v string) string {
	if semver.IsValid(v) {
		return semver.Canonical(v)
	}
	return v
}

// safeCause resolves the next throwable in the cause chain. Cause
// resolution runs user-level logic in the middle of exception handling,
// so an error or panic from it means "no further cause".
func safeCause(th frame.Throwable) (next frame.Throwable) {
	defer func() {
		if recover() != nil {
			next = nil
		}
	}()
	next, err := th.Cause()
	if err != nil {
		return nil
	}
	return next
}
