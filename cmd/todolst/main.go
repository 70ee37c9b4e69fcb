package main

import (
	"github.com/patric-chuzhbe/todolst/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	err = theApp.Run()
	if err != nil {
		panic(err)
	}
}
