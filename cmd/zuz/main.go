// Command zuz builds multi-entry-point libraries in dependency order
package main

import (
	"context"
	"os"

	"github.com/zuzpack/zuz/pkg/cli"
	"github.com/zuzpack/zuz/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.ExecuteWithVersion(context.Background(), version); err != nil {
		logger.NewConsole(os.Stderr).Error(err.Error())
		os.Exit(cli.ExitCode(err))
	}
}
