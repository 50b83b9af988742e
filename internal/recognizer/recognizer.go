// Package recognizer launches the external speech-to-text process and
// reports its standard output line by line.
//
// The recognizer is an opaque program: it prints recognized text to stdout
// and keeps running until it is signalled. This package only manages that
// lifecycle; it never interprets the output.
package recognizer

// Handlers observe a spawned process. OnLine is called once per stdout line,
// in order. Output is split on newlines regardless of how it was written, so
// a single write of "a\nb" yields two OnLine calls. OnExit is called exactly
// once, after the last OnLine call, with the error returned by waiting on the
// process (nil for a clean exit).
type Handlers struct {
	OnLine func(line string)
	OnExit func(err error)
}

// Process is a handle to a running recognizer.
type Process interface {
	// Terminate asks the process to exit. It does not wait.
	Terminate() error
	// PID returns the operating system process id.
	PID() int
}

// Spawner starts recognizer processes.
type Spawner interface {
	Spawn(name string, args []string, h Handlers) (Process, error)
}
