package main

import (
	"fmt"
	"os"

	_ "github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource/csvfile"
	_ "github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource/postgres"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
