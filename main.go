package main

import "github.com/CoPhuocVinh/demo-kafka/cmd"

func main() {
	cmd.Execute()
}
