// Command client is the command-line client of the favkeeper account API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/atinyakov/favkeeper/internal/client"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches the remaining arguments as a command.
func main() {
	var (
		baseURL     string
		sessionPath string
		caFile      string
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&sessionPath, "session", client.DefaultSessionPath(), "path to the session file")
	flag.StringVar(&caFile, "ca", "", "path to a CA cert to trust for HTTPS")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <command>\n\n%s\n\nFlags:\n", os.Args[0], client.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVer {
		fmt.Printf("favkeeper client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	if url := os.Getenv("FAVKEEPER_URL"); url != "" && !isFlagSet("url") {
		baseURL = url
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.NewAPI(baseURL)
	if caFile != "" {
		if err := api.TrustCA(caFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	cli := &client.CLI{
		API:         api,
		Prompt:      client.NewPrompter(os.Stdin, os.Stdout),
		Out:         os.Stdout,
		SessionPath: sessionPath,
	}
	if err := cli.Run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, client.ErrUsage) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
