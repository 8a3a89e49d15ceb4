package main

import "github.com/dnitsch/aws-role-creds/cmd"

func main() {
	cmd.Execute()
}
