package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/fingertools/go-finger/internal/finger"
)

var opts struct {
	Port int  `short:"p" long:"port" description:"Server port" default:"79"`
	Long bool `short:"l" long:"long" description:"Request verbose output (/W)"`
}

func main() {
	args, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	// The last @host names the server to ask; anything before it stays in
	// the query, so `finger user@a@b` asks b to relay to a.
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	host := "localhost"
	query := target
	if i := strings.LastIndex(target, "@"); i >= 0 {
		host = target[i+1:]
		query = target[:i]
	}
	if opts.Long {
		query = "/W " + query
	}

	c := &finger.Client{Port: opts.Port}
	lines, err := c.Finger(context.Background(), host, query)
	if err != nil {
		log.Fatalf("finger: %v", err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}
