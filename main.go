package main

import (
	"os"

	"updatestracker/internal/app"
)

func main() {
	os.Exit(app.Main())
}
