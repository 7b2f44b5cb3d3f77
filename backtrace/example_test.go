package backtrace_test

import (
	"fmt"
	"os"

	"github.com/hseigel/amber/backtrace"
	"github.com/hseigel/amber/internal/backtrace/testvm"
)

// Example captures a scripted stack, prints the rendered trace, and then
// inspects one structured element.
func Example() {
	vm := testvm.New()
	job := vm.DefineClass("demo.Job", "Job.amb", nil)
	work := job.AddMethod("work", []testvm.LineEntry{{StartBCI: 0, Line: 21}})
	submit := job.AddMethod("submit", []testvm.LineEntry{{StartBCI: 0, Line: 8}})

	th := testvm.NewThrowable(job, "widget jammed")
	stack := testvm.NewStack().
		PushInterpreted(work, 3).
		PushInterpreted(submit, 1)
	backtrace.Fill(th, nil, stack.Walker())

	backtrace.Print(os.Stdout, th)

	els, _ := backtrace.Elements(th)
	fmt.Printf("top: %s.%s line %d\n", els[0].ClassName, els[0].MethodName, els[0].LineNumber)

	// Output:
	// demo.Job: widget jammed
	// 	at demo.Job.work(Job.amb:21)
	// 	at demo.Job.submit(Job.amb:8)
	// top: demo.Job.work line 21
}
