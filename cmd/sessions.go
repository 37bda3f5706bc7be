package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightx/upi-insight/internal/chat"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved conversation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the full history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openStore() (*chat.Store, error) {
	return chat.NewStore(cfg.Chat.Path, cfg.Chat.TitleMaxLength)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sessions, err := store.ListSessions(cmd.Context(), cfg.Chat.SessionLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	for _, session := range sessions {
		fmt.Printf("%s  %-50s  %s\n", session.ID, session.Title, session.UpdatedAt)
	}

	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	messages, err := store.GetMessages(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Println("No messages in this session.")
		return nil
	}

	for _, msg := range messages {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)

		if msg.SQLText != "" {
			fmt.Printf("       sql: %s\n", msg.SQLText)
		}
	}

	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted session %s\n", args[0])

	return nil
}
