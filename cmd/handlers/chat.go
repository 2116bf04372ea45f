package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"blogsmith/internal/llm"

	"github.com/spf13/cobra"
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	var articleID string

	cmd := &cobra.Command{
		Use:   "chat [MESSAGE]",
		Short: "Ask the blog assistant a question",
		Long: `Ask the assistant about the blog or a specific article.

With a message the reply is printed once. Without one an interactive
session starts; type 'exit' or press Ctrl-D to leave.

Examples:
  blogsmith chat "What does this site do?"
  blogsmith chat --article 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) > 0 {
				reply, err := a.pipeline.Chat(cmd.Context(), articleID, nil, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Println(reply)
				return nil
			}
			return chatSession(cmd.Context(), os.Stdin, os.Stdout, func(ctx context.Context, history []llm.ChatMessage, message string) (string, error) {
				return a.pipeline.Chat(ctx, articleID, history, message)
			})
		},
	}

	cmd.Flags().StringVar(&articleID, "article", "", "article ID to ground the conversation on")
	return cmd
}

type replyFunc func(ctx context.Context, history []llm.ChatMessage, message string) (string, error)

// chatSession reads messages line by line and keeps the conversation history.
func chatSession(ctx context.Context, in io.Reader, out io.Writer, reply replyFunc) error {
	var history []llm.ChatMessage
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, mutedStyle.Render("Type 'exit' to quit."))
	for {
		fmt.Fprint(out, labelStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			return nil
		}

		answer, err := reply(ctx, history, message)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, titleStyle.Render("assistant>"), answer)
		history = append(history,
			llm.ChatMessage{Role: llm.RoleUser, Text: message},
			llm.ChatMessage{Role: llm.RoleModel, Text: answer},
		)
	}
}
