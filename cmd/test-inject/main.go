// Command test-inject is a manual test for inserting text at the cursor.
// It waits 3 seconds, then inserts test text into the focused window.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste] [--text "..."]
package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/voice-commander/internal/inject"
	"github.com/chaz8081/voice-commander/internal/surface"
)

func main() {
	method := flag.String("method", "type", "inject method: type or paste")
	text := flag.String("text", "Hello from voice-commander!", "text to insert")
	flag.Parse()

	fmt.Printf("Will insert %q using %q method in 3 seconds...\n", *text, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	focus := surface.NewDesktop(inject.NewInjector(*method))
	err := surface.InsertAtCursor(focus, *text)
	switch {
	case errors.Is(err, surface.ErrNoFocus):
		fmt.Println("No focused window found, nothing inserted.")
		return
	case err != nil:
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
