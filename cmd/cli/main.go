package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sharegate/internal/admincli"
)

func main() {
	server := flag.String("s", "http://localhost:8080", "server base URL")
	flag.Parse()

	app := admincli.NewApp(*server, os.Stdout)
	if err := app.Run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
