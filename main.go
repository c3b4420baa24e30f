package main

import (
	"os"

	"pdf-quickcheck/app"
)

func main() {
	os.Exit(app.Run())
}
