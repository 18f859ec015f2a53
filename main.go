package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/healthfin/healthcare-api/cmd"
)

// Set at build time with -ldflags "-X main.apiVersion=..."
var apiVersion = cmd.DefaultVersion

func main() {
	shouldLaunch := flag.Bool("launch", false, "Print the banner, check the configuration and run the server")
	shouldRunServer := flag.Bool("server", false, "Run server")
	shouldRunMigrations := flag.Bool("migrations", false, "Run migrations")
	shouldRunWsClient := flag.Bool("ws-client", false, "Send a test question to a running server")
	flag.Parse()

	compiled := cmd.CompiledConfig{Version: apiVersion}

	if *shouldRunMigrations {
		if err := cmd.RunMigrations(); err != nil {
			log.Printf("error running migrations: %v", err)
			os.Exit(1)
		}
	}

	switch {
	case *shouldLaunch:
		if err := cmd.RunLauncher(compiled); err != nil {
			os.Exit(1)
		}
	case *shouldRunServer:
		if err := cmd.RunServer(compiled); err != nil {
			log.Printf("error running server: %v", err)
			os.Exit(1)
		}
	case *shouldRunWsClient:
		if err := cmd.RunWsClient(context.Background(), cmd.WsClientOptions{}); err != nil {
			log.Printf("ws client: %v", err)
			os.Exit(1)
		}
	case !*shouldRunMigrations:
		flag.Usage()
		os.Exit(2)
	}
}
