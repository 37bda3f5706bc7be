package main

import (
	"fmt"
	"os"

	"github.com/insightx/upi-insight/cmd"
	apperrors "github.com/insightx/upi-insight/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if appErr, ok := err.(*apperrors.Error); ok {
			for _, suggestion := range appErr.Suggestions {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", suggestion)
			}
		}

		os.Exit(1)
	}
}
