package materialize

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hseigel/amber/internal/backtrace/capture"
	"github.com/hseigel/amber/internal/backtrace/frame"
	"github.com/hseigel/amber/internal/backtrace/testvm"
)

func printed(th frame.Throwable, opts PrintOptions) string {
	var buf bytes.Buffer
	Print(&buf, th, opts)
	return buf.String()
}

// TestPrintFullTrace tests the exact rendered shape of a healthy trace.
func TestPrintFullTrace(t *testing.T) {
	f := newFixture(t)
	th := f.throwableFor(testvm.NewStack().
		PushInterpreted(f.handle, 13).
		PushInterpreted(f.run, 4))

	want := "demo.Worker: boom\n" +
		"\tat demo.Worker.handle(amber.app@v1.2.0/Worker.amb:33)\n" +
		"\tat demo.Worker.run(amber.app@v1.2.0/Worker.amb:50)\n"
	require.Equal(t, want, printed(th, PrintOptions{}))
}

// TestPrintHeaderWithoutMessage tests the message-less header form.
func TestPrintHeaderWithoutMessage(t *testing.T) {
	f := newFixture(t)
	th := testvm.NewThrowable(f.worker, "")
	capture.Fill(th, nil, testvm.NewStack().PushInterpreted(f.run, 4).Walker(), capture.Default())

	out := printed(th, PrintOptions{})
	require.Equal(t, "demo.Worker\n\tat demo.Worker.run(amber.app@v1.2.0/Worker.amb:50)\n", out)
}

// TestPrintNoTraceMarker tests the marker for a traceless throwable.
func TestPrintNoTraceMarker(t *testing.T) {
	f := newFixture(t)
	th := testvm.NewThrowable(f.worker, "quiet")

	require.Equal(t, "demo.Worker: quiet\n\t<<no stack trace available>>\n", printed(th, PrintOptions{}))
}

// TestPrintRedefined tests the stand-in after class redefinition.
func TestPrintRedefined(t *testing.T) {
	f := newFixture(t)
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.handle, 13))
	f.worker.Redefine()

	out := printed(th, PrintOptions{})
	require.Contains(t, out, "\tat demo.Worker.handle(amber.app@v1.2.0/Redefined)\n")
}

// TestPrintNativeMethod tests the native stand-in.
func TestPrintNativeMethod(t *testing.T) {
	f := newFixture(t)
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.native, 0))

	require.Contains(t, printed(th, PrintOptions{}), "\tat demo.Worker.read0(amber.app@v1.2.0/Native Method)\n")
}

// TestPrintUnknownSource tests a class compiled without source info.
func TestPrintUnknownSource(t *testing.T) {
	f := newFixture(t)
	anon := f.vm.DefineClass("demo.Generated", "", nil)
	m := anon.AddMethod("apply", nil)
	th := testvm.NewThrowable(anon, "boom")
	capture.Fill(th, nil, testvm.NewStack().PushInterpreted(m, 0).Walker(), capture.Default())

	require.Contains(t, printed(th, PrintOptions{}), "\tat demo.Generated.apply(Unknown Source)\n")
}

// TestPrintSourceWithoutLine tests a known file with no line table.
func TestPrintSourceWithoutLine(t *testing.T) {
	f := newFixture(t)
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.bare, 5))

	require.Contains(t, printed(th, PrintOptions{}), "\tat demo.Worker.generated(amber.app@v1.2.0/Worker.amb)\n")
}

// TestPrintCauseChain tests the chained rendering of nested throwables.
func TestPrintCauseChain(t *testing.T) {
	f := newFixture(t)
	cause := f.throwableFor(testvm.NewStack().PushInterpreted(f.parse, 2))
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.run, 4))
	th.SetCauseFunc(func() (frame.Throwable, error) { return cause, nil })

	want := "demo.Worker: boom\n" +
		"\tat demo.Worker.run(amber.app@v1.2.0/Worker.amb:50)\n" +
		"Caused by: demo.Worker: boom\n" +
		"\tat demo.Worker.parse(amber.app@v1.2.0/Worker.amb:71)\n"
	require.Equal(t, want, printed(th, PrintOptions{}))
}

// TestPrintCauseWithoutTrace tests that a traceless cause renders the
// marker and ends the chain.
func TestPrintCauseWithoutTrace(t *testing.T) {
	f := newFixture(t)
	cause := testvm.NewThrowable(f.worker, "root")
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.run, 4))
	th.SetCauseFunc(func() (frame.Throwable, error) { return cause, nil })

	out := printed(th, PrintOptions{})
	require.Contains(t, out, "Caused by: demo.Worker: root\n\t<<no stack trace available>>\n")
}

// TestPrintCauseFaultEndsChain tests that a panicking cause hook ends the
// chain after the current trace, with nothing else rendered.
func TestPrintCauseFaultEndsChain(t *testing.T) {
	f := newFixture(t)
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.run, 4))
	th.SetCauseFunc(func() (frame.Throwable, error) { panic("cause resolution failed") })

	var out string
	require.NotPanics(t, func() { out = printed(th, PrintOptions{}) })
	require.Equal(t, "demo.Worker: boom\n\tat demo.Worker.run(amber.app@v1.2.0/Worker.amb:50)\n", out)
}

// TestPrintCauseErrorEndsChain tests the error (non-panic) hook outcome.
func TestPrintCauseErrorEndsChain(t *testing.T) {
	f := newFixture(t)
	th := f.throwableFor(testvm.NewStack().PushInterpreted(f.run, 4))
	th.SetCauseFunc(func() (frame.Throwable, error) {
		return nil, errors.New("getCause threw")
	})

	out := printed(th, PrintOptions{})
	require.NotContains(t, out, "Caused by")
}

// TestPrintVerboseCodeAnnotation tests the compiled-code annotation.
func TestPrintVerboseCodeAnnotation(t *testing.T) {
	f := newFixture(t)
	f.run.SetCodeAddress(0x7f3a00401000)
	th := f.throwableFor(testvm.NewStack().
		PushInterpreted(f.run, 4).
		PushInterpreted(f.handle, 13))

	out := printed(th, PrintOptions{Verbose: true})
	require.Contains(t, out, "demo.Worker.run(amber.app@v1.2.0/Worker.amb:50)(code 0x7f3a00401000)\n")
	// handle has no compiled code, so no annotation.
	require.Contains(t, out, "demo.Worker.handle(amber.app@v1.2.0/Worker.amb:33)\n")

	// Non-verbose never annotates.
	require.NotContains(t, printed(th, PrintOptions{}), "(code 0x")
}

// TestModuleVersionRendering tests canonicalization pass-through rules.
func TestModuleVersionRendering(t *testing.T) {
	require.Equal(t, "v1.2.0", moduleVersion("v1.2.0"))
	require.Equal(t, "v1.2.0", moduleVersion("v1.2.0+build.7"))
	require.Equal(t, "9.custom", moduleVersion("9.custom"))
}
