package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	apperrors "github.com/insightx/upi-insight/internal/errors"
	"github.com/insightx/upi-insight/internal/pipeline"
)

var (
	askSessionID string
	askShowSQL   bool
	askMaxRows   int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question from the terminal",
	Long: `Ask a single natural language question about the transaction data.

Examples:
  upi-insight ask "how many transactions failed last month?"
  upi-insight ask --session 3f9c2a81b7d4 "break that down by bank"
  upi-insight ask --show-sql "average amount per state"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "Continue an existing session")
	askCmd.Flags().BoolVar(&askShowSQL, "show-sql", false, "Print the generated SQL")
	askCmd.Flags().IntVar(&askMaxRows, "max-rows", 20, "Maximum result rows to print")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return apperrors.New(apperrors.ErrTypeValidation, "question cannot be empty")
	}

	application, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	indicator := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	indicator.Suffix = " Thinking..."
	indicator.Start()

	response := application.pipeline.Ask(cmd.Context(), askSessionID, question)

	indicator.Stop()

	printResponse(response)

	return nil
}

func printResponse(response *pipeline.Response) {
	if response.Warning != "" {
		fmt.Printf("Note: %s\n\n", response.Warning)
	}

	fmt.Println(response.Answer)

	if askShowSQL && response.SQL != "" {
		fmt.Printf("\nSQL: %s\n", response.SQL)
	}

	if len(response.Rows) > 0 {
		fmt.Println()
		printTable(response)
	}

	if len(response.Followups) > 0 {
		fmt.Println("\nYou could also ask:")

		for _, followup := range response.Followups {
			fmt.Printf("  - %s\n", followup)
		}
	}

	if response.SessionID != "" {
		fmt.Printf("\nSession: %s\n", response.SessionID)
	}
}

func printTable(response *pipeline.Response) {
	fmt.Println(strings.Join(response.Columns, " | "))
	fmt.Println(strings.Repeat("-", len(strings.Join(response.Columns, " | "))))

	rows := response.Rows
	if len(rows) > askMaxRows {
		rows = rows[:askMaxRows]
	}

	for _, row := range rows {
		values := make([]string, 0, len(response.Columns))
		for _, column := range response.Columns {
			values = append(values, fmt.Sprintf("%v", row[column]))
		}

		fmt.Println(strings.Join(values, " | "))
	}

	if len(response.Rows) > askMaxRows || response.Truncated {
		fmt.Printf("... (%d rows shown)\n", len(rows))
	}
}
