package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Retrieve context for a question",
	Long: `Retrieves the most relevant knowledge base chunks for a question.

The question is embedded and matched against the vector index. Each
result includes the following chunk of its source document so that
answers are not cut off mid-thought.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (0 = default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	question := strings.Join(args, " ")

	context, err := knowledgeService.ContextForQuery(cmd.Context(), question, queryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		out, err := json.MarshalIndent(map[string]string{
			"query":   question,
			"context": context,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Println(context)
	return nil
}
