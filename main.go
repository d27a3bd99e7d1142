package main

import "github.com/arthspark/etl/cmd"

func main() {
	cmd.Execute()
}
