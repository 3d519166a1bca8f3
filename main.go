package main

import "github.com/jjenkins/foirequests/cmd"

func main() {
	cmd.Execute()
}
