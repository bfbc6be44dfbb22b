// Package main writes a self-signed server certificate and key for running
// the server with TLS_CERT and TLS_KEY in development.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atinyakov/favkeeper/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated host names and IPs")
	validFor := flag.Duration("valid-for", 365*24*time.Hour, "certificate lifetime")
	flag.Parse()

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(strings.Split(*hosts, ","), *validFor)
	if err != nil {
		log.Fatal(err)
	}
	certPath, keyPath, err := certgen.WriteFiles(*dir, certPEM, keyPEM)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Certificate written to %s\nKey written to %s\n", certPath, keyPath)
	fmt.Printf("Run the server with TLS_CERT=%s TLS_KEY=%s\n", certPath, keyPath)
}
