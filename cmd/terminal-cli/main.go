package main

import (
	"github.com/goatapp/adyen-terminal-api/internal/cli"
)

// CLI driver for secured exchanges with a POI terminal
func main() {
	cli.Execute()
}
