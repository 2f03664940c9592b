package main

import (
	"fmt"
	"os"

	"github.com/Billy-Davies-2/fightpick/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fightpick:", err)
		os.Exit(1)
	}
}
