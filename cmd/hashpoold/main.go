package main

import (
	"log"

	cmd "github.com/hashpool/snarkOS-1/cmd/hashpoold/commands"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Fatalf("Panic: %+v", r)
		}
	}()

	cmd.Execute()
}
