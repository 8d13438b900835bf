package main

import (
	"fmt"
	"os"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/cli"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	client := api.NewClient()
	if token := cli.LoadSession(); token != "" {
		client.SetToken(token)
	}

	rootCmd := cli.NewRootCmd(client, Version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
