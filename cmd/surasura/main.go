package main

import (
	"fmt"
	"os"

	"github.com/sant0-9/surasura/cmd/surasura/commands"
	"github.com/sant0-9/surasura/internal/errors"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errors.Message(err))
		os.Exit(1)
	}
}
