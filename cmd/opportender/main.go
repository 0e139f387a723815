package main

import (
	"fmt"
	"os"

	"github.com/kpant2190/Opportender-Backend/cmd/opportender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
