// Command haircarectl is the operator CLI for HairCare Pro: schema
// migrations, manual reminder passes, account creation and plan reporting.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newCLI()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
