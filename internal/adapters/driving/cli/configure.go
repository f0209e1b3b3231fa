package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the knowledge base connection",
	Long: `Interactive setup for the Neo4j connection, the embedding provider
and the knowledge directory. Values are stored in the config file and
picked up on the next run.`,
	RunE: runConfigure,
}

var configureShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigureShow,
}

func init() {
	configureCmd.AddCommand(configureShowCmd)
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	if settingsStore == nil {
		return errors.New("settings store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Neo4j connection")
	cmd.Println("----------------")

	uri := promptDefault(cmd, reader, "URI", settingsStore.GetString("graph.uri"))
	username := promptDefault(cmd, reader, "Username", settingsStore.GetString("graph.username"))

	cmd.Print("Password (leave empty to keep current): ")
	password := readPassword()
	cmd.Println()

	database := promptDefault(cmd, reader, "Database", settingsStore.GetString("graph.database"))

	cmd.Println()
	cmd.Println("Embedding provider")
	cmd.Println("------------------")

	model := promptDefault(cmd, reader, "Model", settingsStore.GetString("embedding.model"))

	cmd.Printf("API key (current: %s, leave empty to keep): ", maskAPIKey(settingsStore.GetString("embedding.api_key")))
	apiKey := readPassword()
	cmd.Println()

	cmd.Println()
	cmd.Println("Indexing")
	cmd.Println("--------")

	knowledgeDirValue := promptDefault(cmd, reader, "Knowledge directory", settingsStore.GetString("index.knowledge_dir"))
	chunkSize := promptIntDefault(cmd, reader, "Chunk size", settingsStore.GetInt("index.chunk_size"))
	chunkOverlap := promptIntDefault(cmd, reader, "Chunk overlap", settingsStore.GetInt("index.chunk_overlap"))

	values := map[string]any{
		"graph.uri":           uri,
		"graph.username":      username,
		"graph.database":      database,
		"embedding.model":     model,
		"index.knowledge_dir": knowledgeDirValue,
		"index.chunk_size":    chunkSize,
		"index.chunk_overlap": chunkOverlap,
	}
	if password != "" {
		values["graph.password"] = password
	}
	if apiKey != "" {
		values["embedding.api_key"] = apiKey
	}

	for key, value := range values {
		if err := settingsStore.Set(key, value); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}

	cmd.Println()
	cmd.Printf("Configuration saved to %s\n", settingsStore.Path())
	return nil
}

func runConfigureShow(cmd *cobra.Command, _ []string) error {
	if settingsStore == nil {
		return errors.New("settings store not configured")
	}

	cmd.Printf("Config file:         %s\n", settingsStore.Path())
	cmd.Printf("Neo4j URI:           %s\n", settingsStore.GetString("graph.uri"))
	cmd.Printf("Neo4j username:      %s\n", settingsStore.GetString("graph.username"))
	cmd.Printf("Neo4j database:      %s\n", settingsStore.GetString("graph.database"))
	cmd.Printf("Embedding model:     %s\n", settingsStore.GetString("embedding.model"))
	cmd.Printf("Embedding API key:   %s\n", maskAPIKey(settingsStore.GetString("embedding.api_key")))
	cmd.Printf("Knowledge directory: %s\n", settingsStore.GetString("index.knowledge_dir"))
	cmd.Printf("Chunk size:          %d\n", settingsStore.GetInt("index.chunk_size"))
	cmd.Printf("Chunk overlap:       %d\n", settingsStore.GetInt("index.chunk_overlap"))
	return nil
}

// Helper functions.

func promptDefault(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, current)
	} else {
		cmd.Printf("%s: ", label)
	}
	input := readLine(reader)
	if input == "" {
		return current
	}
	return input
}

func promptIntDefault(cmd *cobra.Command, reader *bufio.Reader, label string, current int) int {
	cmd.Printf("%s [%d]: ", label, current)
	input := readLine(reader)
	if input == "" {
		return current
	}
	val, err := strconv.Atoi(input)
	if err != nil {
		return current
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
