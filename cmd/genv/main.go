package main

import (
	"os"

	"github.com/sajjad-MoBe/genv/internal/clientcmd"
)

func main() {
	os.Exit(clientcmd.Execute())
}
