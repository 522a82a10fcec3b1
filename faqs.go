package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shank50/supportbotai/internal/config"
	"github.com/shank50/supportbotai/internal/faq"
)

func newFAQsCmd(configPath *string) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "faqs",
		Short: "Validate and list the FAQ corpus",
		Long:  "Loads the FAQ corpus the server would use, validates it, and prints one line per record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				path = cfg.FAQPath
			}
			return runFAQs(cmd, path)
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "FAQ corpus file (default: configured faq_path or the built-in corpus)")
	return cmd
}

func runFAQs(cmd *cobra.Command, path string) error {
	corpus, err := faq.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range corpus.All() {
		line := fmt.Sprintf("%-8s [%s] %s", f.ID, f.Category, f.Question)
		if len(f.Keywords) > 0 {
			line += " (" + strings.Join(f.Keywords, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d FAQs loaded\n", corpus.Len())
	return nil
}
