package main // Entry point package

import (
	"os"

	"github.com/iliyamo/wild-pasta-booking/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
