package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jjenkins/foirequests/internal/refusal"
)

var adviceTree bool
var adviceTimeout time.Duration

var adviceCmd = &cobra.Command{
	Use:   "advice",
	Short: "Work with refusal advice documents",
}

var adviceCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the configured refusal advice and report what it contains",
	Long: `Check reads every configured refusal advice source, builds the advice
store exactly as the server would, and prints the number of questions and
actions per legislation. It exits non-zero if any document is malformed.`,
	Run: runAdviceCheck,
}

func init() {
	rootCmd.AddCommand(adviceCmd)
	adviceCmd.AddCommand(adviceCheckCmd)

	adviceCheckCmd.Flags().BoolVar(&adviceTree, "tree", false, "Print the full question and action trees")
	adviceCheckCmd.Flags().DurationVar(&adviceTimeout, "timeout", 30*time.Second, "Give up loading sources after this long")
}

func runAdviceCheck(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), adviceTimeout)
	defer cancel()

	sources, err := adviceSources(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to configure refusal advice: %v", err)
	}

	s, err := refusal.Load(ctx, sources...)
	if err != nil {
		var cfgErr *refusal.ConfigError
		if errors.As(err, &cfgErr) {
			log.Printf("Malformed refusal advice in %s", cfgErr.Source)
		}
		log.Fatalf("Refusal advice check failed: %v", err)
	}

	out := cmd.OutOrStdout()
	for _, key := range s.Legislations() {
		fmt.Fprintf(out, "%s: %d questions, %d actions\n", key, len(s.Questions(key)), len(s.Actions(key)))
		if adviceTree {
			printTree(out, "questions", s.Questions(key))
			printTree(out, "actions", s.Actions(key))
		}
	}
}

func printTree(w io.Writer, heading string, nodes []refusal.Question) {
	fmt.Fprintf(w, "  %s:\n", heading)
	var walk func(nodes []refusal.Question, depth int)
	walk = func(nodes []refusal.Question, depth int) {
		for _, n := range nodes {
			label := n.ID
			if n.Title != "" {
				label = fmt.Sprintf("%s (%s)", n.Title, n.ID)
			}
			fmt.Fprintf(w, "%s- %s\n", strings.Repeat("  ", depth+2), label)
			walk(n.Suggestions, depth+1)
		}
	}
	walk(nodes, 0)
}
