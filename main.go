package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/lhzou/blpapi-mcp/internal/cmd"
)

func main() {
	// Environment overrides may come from a .env file in the working
	// directory; missing files are not an error.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
