package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <prompt>",
	Short: "Submit a prompt to a running promptrelay server",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().String("server", "http://127.0.0.1:8080", "promptrelay server base URL")
	submitCmd.Flags().String("priority", "normal", "Priority: high, normal, or low")
	submitCmd.Flags().String("thread", "", "Thread id to associate the message with")
}

type submitBody struct {
	UserMessage string `json:"user_message"`
	Priority    string `json:"priority"`
	ThreadID    string `json:"thread_id"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	priority, _ := cmd.Flags().GetString("priority")
	thread, _ := cmd.Flags().GetString("thread")

	payload, err := json.Marshal(submitBody{
		UserMessage: args[0],
		Priority:    priority,
		ThreadID:    thread,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(server+"/messages", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("submitting to %s: %w", server, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s: %s", resp.Status, body)
	}

	fmt.Println(string(body))
	return nil
}
