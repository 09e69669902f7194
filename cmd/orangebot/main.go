// Command orangebot is the Orange Egypt customer-service assistant. It serves
// the chat API over HTTP, runs a terminal chat client and ingests the
// knowledge base into the vector store.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/orangebot-go/cmd/orangebot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
