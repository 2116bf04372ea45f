package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"blogsmith/internal/core"

	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command
func NewScrapeCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch a new article from the source blog",
		Long: `Fetch a new article from the configured source blog.

By default a random article that is not stored yet is picked from the
listing page (or feed). With --batch the oldest N articles are scraped
instead; articles already stored are skipped.

Examples:
  blogsmith scrape
  blogsmith scrape --batch 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("batch") {
				if batch <= 0 {
					batch = a.cfg.Source.BatchSize
				}
				res, err := a.pipeline.ScrapeBatch(cmd.Context(), batch)
				if err != nil {
					return err
				}
				fmt.Println(successStyle.Render(fmt.Sprintf("Scraped %d new articles", res.Created)) +
					mutedStyle.Render(fmt.Sprintf(" (%d already stored, %d failed)", res.Skipped, res.Failed)))
				return nil
			}

			article, err := a.pipeline.Scrape(cmd.Context())
			if errors.Is(err, core.ErrNoNewContent) {
				fmt.Println(warnStyle.Render(err.Error()))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Scraped new article"))
			fmt.Println(renderArticle(article, false))
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "scrape the oldest N articles (0 uses source.batch_size)")
	return cmd
}

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored articles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var articles []*core.Article
			if status != "" {
				articles, err = a.store.ListByStatus(cmd.Context(), core.Status(status))
			} else {
				articles, err = a.store.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Println(renderArticleList(articles))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, processed)")
	return cmd
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one article with its research and rewrite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(renderArticle(article, full))
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print the rewritten content")
	return cmd
}

// NewDeleteCmd creates the delete command
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Deleted article " + args[0]))
			return nil
		},
	}
}

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "List the previous rewrites of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(renderHistory(article))
			return nil
		},
	}
}

// NewRestoreCmd creates the restore command
func NewRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID TIMESTAMP",
		Short: "Restore an earlier rewrite from the version history",
		Long: `Restore an earlier rewrite. The current rewrite is kept in the
history, so a restore can itself be undone.

Use 'blogsmith history ID' to find the timestamps.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", args[1], core.ErrInvalidInput)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.pipeline.Restore(cmd.Context(), args[0], ts)
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render("Restored version " + args[1]))
			fmt.Println(renderArticle(article, false))
			return nil
		},
	}
}

// NewModelsCmd creates the models command
func NewModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the Gemini models available to the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			models, err := a.pipeline.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(renderModels(models))
			return nil
		},
	}
}
