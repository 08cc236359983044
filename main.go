package main

import "github.com/zen-downloader/zen/cmd"

func main() {
	cmd.Execute()
}
