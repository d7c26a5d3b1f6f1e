// gosh - Go Shell
// Interactive command shell with pipes and redirections, written in Go.
// Copyright (c) 2025 gosh project - 0BSD License

package main

import (
	"os"

	"github.com/cryptexctl/gosh/internal/cli"
)

var (
	version   = "1.1.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	}))
}
