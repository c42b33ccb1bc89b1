package main

import (
	"fmt"
	"os"

	"visiond/internal/visionctl"
)

func main() {
	if err := visionctl.Main(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
