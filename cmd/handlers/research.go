package handlers

import (
	"fmt"
	"strings"

	"blogsmith/internal/core"
	"blogsmith/internal/enrich"

	"github.com/spf13/cobra"
)

// NewResearchCmd creates the research command
func NewResearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "research ID",
		Short: "Search the web for articles related to a stored article",
		Long: `Search the configured provider using the article title and store
the results as research candidates. Earlier candidates are replaced.

Candidates start as pending; approve the ones worth citing before
running 'blogsmith enrich'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			candidates, err := a.pipeline.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(renderCandidates(candidates))
			return nil
		},
	}
}

// NewResetCmd creates the reset command
func NewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset ID",
		Short: "Clear a research or rewrite that was interrupted",
		Long: `Move an article stuck in searching or processing back to the last
resting state so it can be researched or rewritten again. Articles
that are not stuck are left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.pipeline.Reset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(field("Research", string(article.ResearchState)))
			return nil
		},
	}
}

// NewApproveCmd creates the approve command
func NewApproveCmd() *cobra.Command {
	return newCurateCmd("approve", "Approve a research candidate as a source", true)
}

// NewRejectCmd creates the reject command
func NewRejectCmd() *cobra.Command {
	return newCurateCmd("reject", "Reject a research candidate", false)
}

func newCurateCmd(use, short string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID URL",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if approve {
				err = a.pipeline.Approve(cmd.Context(), args[0], args[1])
			} else {
				err = a.pipeline.Reject(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return err
			}

			article, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(renderCandidates(article.ResearchCandidates))
			return nil
		},
	}
}

// NewConfigureCmd creates the configure command
func NewConfigureCmd() *cobra.Command {
	var (
		tone        string
		keywords    []string
		custom      string
		language    string
		readability int
	)

	cmd := &cobra.Command{
		Use:   "configure ID",
		Short: "Save the rewrite settings for an article",
		Long: `Save tone, keywords and other rewrite settings for an article.
The settings replace the saved ones and are used by the next enrich.

Examples:
  blogsmith configure 42 --tone professional --keywords "chatbots,customer support"
  blogsmith configure 42 --readability 70 --language Spanish`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gc := core.GenerationConfig{
				Tone:           strings.TrimSpace(tone),
				Keywords:       keywords,
				CustomPrompt:   custom,
				TargetLanguage: language,
			}
			if cmd.Flags().Changed("readability") {
				gc.ReadabilityLevel = &readability
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.pipeline.Configure(cmd.Context(), args[0], gc); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Saved rewrite settings for article " + args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&tone, "tone", "professional", "writing tone")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "target SEO keywords (comma separated)")
	cmd.Flags().StringVar(&custom, "prompt", "", "custom instructions for the rewrite")
	cmd.Flags().StringVar(&language, "language", "", "target language (default keeps the source language)")
	cmd.Flags().IntVar(&readability, "readability", 50, "readability level from 0 (expert) to 100 (very simple)")
	return cmd
}

// NewEnrichCmd creates the enrich command
func NewEnrichCmd() *cobra.Command {
	var (
		models []string
		full   bool
	)

	cmd := &cobra.Command{
		Use:   "enrich ID",
		Short: "Rewrite an article with Gemini using the approved research",
		Long: `Rewrite an article with Gemini. Approved research candidates are
fetched and cited; the saved rewrite settings shape the prompt.

The previous rewrite is kept in the version history. Models are tried
in order until one succeeds.

Examples:
  blogsmith enrich 42
  blogsmith enrich 42 --model gemini-2.5-pro --model gemini-2.5-flash`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println(mutedStyle.Render("Rewriting article " + args[0] + "..."))
			article, err := a.pipeline.Enrich(cmd.Context(), args[0], enrich.Options{Models: models})
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Article rewritten"))
			fmt.Println(renderArticle(article, full))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&models, "model", nil, "model to try, in order (repeatable; default from config)")
	cmd.Flags().BoolVar(&full, "full", false, "print the rewritten content")
	return cmd
}
