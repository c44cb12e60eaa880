package main

import "github.com/nguyentranbao-ct/chat-crm/cmd"

func main() {
	cmd.Execute()
}
