package main

import "github.com/noahrubin989/Azure-Face-Detection/cmd"

func main() {
	cmd.Execute()
}
