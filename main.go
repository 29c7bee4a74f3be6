package main

import (
	"os"

	"github.com/Tiliavir/wakalyze/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
