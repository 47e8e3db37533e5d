package main

import "github.com/congsh/PeerHaiguitang/cmd"

func main() {
	cmd.Execute()
}
