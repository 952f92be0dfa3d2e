package main

import "os"

func main() {
	// Soft failures never reach here; they exit zero with warnings in the
	// summary. Anything returned is fatal and already reported by the
	// recovery controller.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
