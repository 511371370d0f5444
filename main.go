package main

import "github.com/MeKo-Tech/radarmosaic/cmd"

func main() {
	cmd.Execute()
}
