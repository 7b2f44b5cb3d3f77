package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"

	"github.com/hseigel/amber/backtrace"
	"github.com/hseigel/amber/internal/backtrace/testvm"
)

// policy holds the shared capture-policy flags of the demo commands.
type policy struct {
	maxDepth   int
	showHidden bool
	verbose    bool
	debug      bool
}

func (p *policy) register(fs *flag.FlagSet) {
	fs.IntVar(&p.maxDepth, "max-depth", 1024, "maximum recorded frames, 0 = unlimited")
	fs.BoolVar(&p.showHidden, "show-hidden", false, "record hidden (synthetic) frames")
	fs.BoolVar(&p.verbose, "verbose", false, "annotate frames that have compiled code")
	fs.BoolVar(&p.debug, "debug", false, "log capture completion to stderr")
}

// install applies the parsed flags as the engine-wide capture policy.
func (p *policy) install() {
	cfg := backtrace.CurrentConfig()
	cfg.MaxDepth = p.maxDepth
	cfg.SuppressHidden = !p.showHidden
	if p.debug {
		cfg.Logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	backtrace.Configure(cfg)
}

func (p *policy) print(th backtrace.Throwable) {
	if p.verbose {
		backtrace.PrintVerbose(os.Stdout, th)
	} else {
		backtrace.Print(os.Stdout, th)
	}
}

// scenario is the scripted runtime shared by the demo commands: a small
// application hierarchy on top of the throwable base class, with one
// compiled frame carrying an inlined scope.
type scenario struct {
	vm      *testvm.VM
	worker  *testvm.Class
	filler  *testvm.Method
	ctor    *testvm.Method
	parse   *testvm.Method
	handler *testvm.Method
	run     *testvm.Method
	main    *testvm.Method
	boom    *testvm.Class
	base    *testvm.Class
}

func buildScenario() *scenario {
	vm := testvm.New()

	mod, err := testvm.DefineModule("amber.app", "v1.2.0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	base := vm.DefineClass("amber.lang.Throwable", "Throwable.amb", nil)
	filler := base.AddMethod("fillInStackTrace", []testvm.LineEntry{{StartBCI: 0, Line: 20}})
	base.AddMethod("<init>", []testvm.LineEntry{{StartBCI: 0, Line: 8}})

	boom := vm.DefineClass("demo.ParseError", "ParseError.amb", base)
	ctor := boom.AddMethod("<init>", []testvm.LineEntry{{StartBCI: 0, Line: 5}})
	boom.SetModule(mod)

	worker := vm.DefineClass("demo.Worker", "Worker.amb", nil)
	worker.SetModule(mod)
	worker.SetLoaderName("app")

	s := &scenario{vm: vm, worker: worker, filler: filler, ctor: ctor, boom: boom, base: base}
	s.parse = worker.AddMethod("parse", []testvm.LineEntry{
		{StartBCI: 0, Line: 30}, {StartBCI: 12, Line: 34},
	})
	s.handler = worker.AddMethod("handle", []testvm.LineEntry{
		{StartBCI: 0, Line: 50},
	}).SetHidden()
	s.run = worker.AddMethod("run", []testvm.LineEntry{
		{StartBCI: 0, Line: 61}, {StartBCI: 7, Line: 66},
	}).SetCodeAddress(0x7f3a00401000)
	s.main = worker.AddMethod("main", []testvm.LineEntry{
		{StartBCI: 0, Line: 80}, {StartBCI: 3, Line: 82},
	})
	return s
}

// stack scripts the raising thread: filler and constructor frames on
// top (elided by capture), then a hidden dispatch frame, then the
// application frames, with run inlined into main's compiled frame.
func (s *scenario) stack() *testvm.Stack {
	return testvm.NewStack().
		PushInterpreted(s.filler, 0).
		PushInterpreted(s.ctor, 2).
		PushInterpreted(s.handler, 4).
		PushInterpreted(s.parse, 13).
		PushCompiled(
			testvm.Scope{Method: s.run, BCI: 9},
			testvm.Scope{Method: s.main, BCI: 3},
		)
}

// demoCommand implements 'amber demo': capture a scripted throw and
// print it.
func demoCommand(args []string) {
	var p policy
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	p.register(fs)
	_ = fs.Parse(args)
	p.install()

	s := buildScenario()
	th := testvm.NewThrowable(s.boom, "unexpected token at offset 214")
	backtrace.Fill(th, nil, s.stack().Walker())

	fmt.Printf("captured %d frames, %d chunk(s) of capacity %d\n\n",
		th.Depth(), chunkCount(th), backtrace.ChunkCapacity)
	p.print(th)
}

// redefineCommand implements 'amber redefine': capture, redefine the
// declaring class, then print the degraded trace next to the original.
func redefineCommand(args []string) {
	var p policy
	fs := flag.NewFlagSet("redefine", flag.ExitOnError)
	p.register(fs)
	_ = fs.Parse(args)
	p.install()

	s := buildScenario()
	th := testvm.NewThrowable(s.boom, "unexpected token at offset 214")
	backtrace.Fill(th, nil, s.stack().Walker())

	fmt.Println("before redefinition:")
	p.print(th)

	s.worker.Redefine()

	fmt.Println("\nafter redefinition of demo.Worker:")
	p.print(th)
}

// chunkCount reports how many element batches the trace spans.
func chunkCount(th backtrace.Throwable) int {
	d := th.Depth()
	if d == 0 {
		return 0
	}
	return (d + backtrace.ChunkCapacity - 1) / backtrace.ChunkCapacity
}
