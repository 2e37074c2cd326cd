package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cone387/cone/pkg/curl"
)

var curlStrict bool

var curlCmd = &cobra.Command{
	Use:   "curl <command>",
	Short: "Parse a curl command line into a JSON request",
	Long: `Parse a curl command line into its method, URL, headers, cookies and body.
The command can be passed as one quoted argument or as separate words after --.`,
	Example: `  cone curl "curl -X PUT -H 'Cookie: a=1' http://example.com -d 'x=1'"
  cone curl -- curl -H 'Accept: text/html' example.com`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		command := strings.Join(args, " ")
		if len(args) > 1 && args[0] == "curl" {
			// Words after -- arrive already split by the shell.
			command = shellJoin(args)
		}

		opts := []curl.Option{curl.WithLogger(slog.Default())}
		if curlStrict {
			opts = append(opts, curl.WithStrict())
		}

		req, err := curl.Parse(command, opts...)
		if err != nil {
			fatal("Error parsing curl command", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(req); err != nil {
			fatal("Error encoding request", err)
		}
	},
}

// shellJoin quotes every word so the parser sees the same tokens again.
func shellJoin(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

func init() {
	curlCmd.Flags().BoolVar(&curlStrict, "strict", false, "Fail on curl options the parser does not know")
	rootCmd.AddCommand(curlCmd)
}
