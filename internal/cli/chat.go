package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"chatpdf/internal/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat <document> [message]",
	Short: "Ask questions about a document",
	Long: `Ask questions about an uploaded document. With a message the answer is
printed and the command exits; without one an interactive session starts.

Interactive commands:
  /history         show this document's conversation
  /clear           delete this document's conversation
  /model [name]    show or switch the language model
  /reload          drop cached indexes and question embeddings
  /quit            leave`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	bar := newProgress("Embedding")
	a, err := openApp(appOptions{buildProgress: bar.update})
	if err != nil {
		return err
	}

	doc, err := resolveDocument(ctx, a, args[0])
	if err != nil {
		return err
	}

	if len(args) > 1 {
		answer, err := a.chat.Respond(ctx, doc.ID, strings.Join(args[1:], " "))
		if err != nil {
			return describeChatError(err)
		}
		fmt.Println(answer)
		return nil
	}

	fmt.Printf("Chatting with %s using %s. Type /quit to leave.\n", doc.Name, a.session.Model())
	return chatLoop(ctx, a, doc, cmd.InOrStdin())
}

func chatLoop(ctx context.Context, a *app, doc domain.Document, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := chatCommand(ctx, a, doc, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		answer, err := a.chat.Respond(ctx, doc.ID, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", describeChatError(err))
			continue
		}
		fmt.Printf("\n%s\n\n", answer)
	}
}

func chatCommand(ctx context.Context, a *app, doc domain.Document, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/history":
		turns, err := a.chat.History(ctx, doc.ID)
		if err != nil {
			return false, err
		}
		printTurns(turns)
	case "/clear":
		if err := a.chat.Clear(ctx, doc.ID); err != nil {
			return false, err
		}
		fmt.Println("History cleared.")
	case "/model":
		if len(fields) == 1 {
			fmt.Printf("Current model: %s\nAvailable: %s\n", a.session.Model(), strings.Join(a.session.Models(), ", "))
			return false, nil
		}
		if err := a.session.SetModel(fields[1]); err != nil {
			return false, err
		}
		fmt.Printf("Switched to %s.\n", fields[1])
	case "/reload":
		a.session.Indexes().Clear()
		if a.queries != nil {
			a.queries.Invalidate()
		}
		fmt.Println("Cached indexes dropped; the next question rebuilds the index.")
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

func describeChatError(err error) error {
	switch {
	case errors.Is(err, domain.ErrGenerationFailure):
		return fmt.Errorf("the model did not answer, try again: %w", err)
	case errors.Is(err, domain.ErrRetrievalFailure):
		return fmt.Errorf("document search failed: %w", err)
	default:
		return err
	}
}
