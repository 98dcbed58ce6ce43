package main

import "github.com/samsaffron/diffstream/cmd"

func main() {
	cmd.Execute()
}
