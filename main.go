package main

import (
	"os"

	"github.com/abhisek/qbank/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
