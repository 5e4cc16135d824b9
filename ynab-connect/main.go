package main

import "github.com/howeyc/ynab-connect/ynab-connect/cmd"

func main() {
	cmd.Execute()
}
