package main

import "github.com/smsflow/smsflow/cmd"

func main() {
	cmd.Execute()
}
