/*
Package bilevel converts color raster images to grayscale using the BT.601
luminance weights and thresholds the result into a black and white image.

The package provides a command line interface, supporting flags for the
threshold, the output destinations and an optional preview window.
To check the supported commands type:

	$ bilevel --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"os"

		"github.com/esimov/bilevel"
	)

	func main() {
		p := bilevel.NewProcessor()
		p.Sink = bilevel.FileSink{BinaryPath: "out.png"}

		f, _ := os.Open("in.jpg")
		defer f.Close()

		if _, err := p.Process(f); err != nil {
			fmt.Printf("Error converting image: %s", err.Error())
		}
	}
*/
package bilevel
