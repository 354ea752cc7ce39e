package main

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <message-id>",
	Short: "Stream a message's events from a running promptrelay server",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("server", "http://127.0.0.1:8080", "promptrelay server base URL")
}

func runWatch(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	id := args[0]

	resp, err := http.Get(server + "/messages/" + id + "/stream")
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			fmt.Printf("%s: %s\n", event, strings.TrimPrefix(line, "data: "))
		case line == "":
			// blank line separates events; nothing to do
		}
	}
	return scanner.Err()
}
