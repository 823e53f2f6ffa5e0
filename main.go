package main

import "github.com/RyanBlaney/phrasebound/cmd"

func main() {
	cmd.Execute()
}
