package main

import (
	"log"

	"campus/cmd/internal/app"
)

func main() {
	if err := app.Run(app.ServiceUsers); err != nil {
		log.Fatal(err)
	}
}
