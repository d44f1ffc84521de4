// ledgerchat CLI - command line client for the room API
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/eldtechnologies/ledgerchat/clients/go/chat"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := chat.NewClient(os.Getenv("LEDGERCHAT_URL"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat read <room>")
			os.Exit(1)
		}
		resp, err := client.GetMessages(ctx, os.Args[2])
		exitOnError(err)
		for _, msg := range resp.Messages {
			ts := msg.Timestamp.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, msg.Sender.Name, msg.Content)
		}
		fmt.Printf("(%d messages, storage: %s)\n", resp.Count, resp.Storage)

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat send <room> <message>")
			os.Exit(1)
		}
		resp, err := client.SendText(ctx, os.Args[2], os.Getenv("LEDGERCHAT_NAME"), os.Args[3])
		exitOnError(err)
		fmt.Printf("Posted: %s (storage: %s)\n", resp.Message.ID, resp.Storage)

	case "status":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: ledgerchat status <room>")
			os.Exit(1)
		}
		resp, err := client.Status(ctx, os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`ledgerchat CLI

Usage: ledgerchat <command> [options]

Commands:
  read <room>             Read a room's messages
  send <room> <message>   Post a text message
  status <room>           Show message count and last message
  health                  Check server health

Environment:
  LEDGERCHAT_URL    Server URL (default: http://localhost:8080)
  LEDGERCHAT_NAME   Sender name for send (default: Anonymous)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
