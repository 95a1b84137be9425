package main

import (
	"os"

	"github.com/phillarmonic/dsh/cmd/dsh/app"
)

// Build information, set via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(app.NewApp(version, commit, date).Execute())
}
