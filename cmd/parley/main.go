package main

import (
	"os"

	"horse.fit/parley/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
