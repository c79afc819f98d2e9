package main

import (
	"github.com/spf13/cobra"

	"mwa-review/src/mcp"
)

// mcpCmd serves the contact tools over MCP stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve contact review tools to MCP clients over stdio",
	Long: `Start an MCP server on stdin/stdout exposing list_contacts, get_contact,
contact_scoring and review_queue, so assistants can help triage the review queue.

Stdout carries the protocol; logs go to --log-file when set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := quietLogger()
		if err != nil {
			return err
		}
		defer closer.Close()

		contactAPI, err := newContactAPI(appConfig, log)
		if err != nil {
			return err
		}
		defer contactAPI.Close()

		return mcp.NewServer(contactAPI, version, log).Run()
	},
}
