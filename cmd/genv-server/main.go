package main

import (
	"os"

	"github.com/sajjad-MoBe/genv/internal/servercmd"
)

func main() {
	os.Exit(servercmd.Execute())
}
