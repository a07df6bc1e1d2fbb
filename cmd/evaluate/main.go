// Command evaluate grades the Goblin King on scene initialization, rule
// knowledge or scripted play, and stores the reports.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
