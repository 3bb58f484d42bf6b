package main

import (
	"fmt"
	"os"
)

func run() error {
	os.Exit(2)
	return nil
}

func main() {
	defer fmt.Println("bye")

	if err := run(); err != nil {
		os.Exit(1) // want "os.Exit call is forbidden in main function"
	}

	go func() {
		os.Exit(3)
	}()
}
