package main

import (
	"fmt"
	"os"

	"github.com/nuevaaudio/nueva-engine/cmd/nueva"
)

func main() {
	root := nueva.RootCommand()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(nueva.ExitCode(err))
}
