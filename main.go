package main

import "github.com/frahmantamala/ai-helper/cmd"

func main() {
	cmd.Execute()
}
