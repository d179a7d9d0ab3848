package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/psantana5/procwatch/cmd/procwatch/cmd"
	"github.com/psantana5/procwatch/internal/monitor"
)

func main() {
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(monitor.ExitCode(err))
}
