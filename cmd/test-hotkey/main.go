// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press F8 / F9 (or the toggle combo) to see events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--mode commands|toggle|hold]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/voice-commander/internal/hotkey"
)

func main() {
	mode := flag.String("mode", "commands", "hotkey mode: commands, toggle or hold")
	flag.Parse()

	b := hotkey.Bindings{
		Mode:  *mode,
		Start: []string{"f8"},
		Stop:  []string{"f9"},
		Keys:  []string{"ctrl", "shift", "r"},
	}
	if *mode == "commands" {
		fmt.Printf("Listening for %s (start) and %s (stop)...\n", hotkey.Hint(b.Start), hotkey.Hint(b.Stop))
	} else {
		fmt.Printf("Listening for %s in %q mode...\n", hotkey.Hint(b.Keys), *mode)
	}
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(b)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventStart:
				fmt.Println(">>> START (recording)")
			case hotkey.EventStop:
				fmt.Println("<<< STOP  (stopped)")
			case hotkey.EventToggle:
				fmt.Println("<>> TOGGLE")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
