package main

import (
	"github.com/dyike/StockPulse/internal/cli"
)

func main() {
	cli.Run()
}
