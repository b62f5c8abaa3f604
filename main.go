//go:build !test

package main

import (
	"log"
	"os"

	"github.com/a15hv/armvisor/cli"
)

func main() {
	_, kctx, err := cli.Parse(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if err := kctx.Run(); err != nil {
		log.Fatal(err)
	}
}
