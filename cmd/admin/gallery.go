package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"portfolio/internal/gallery"
	"portfolio/internal/models"
)

const firstLoadTimeout = 10 * time.Second

func newGalleryCmd(opts *options) *cobra.Command {
	var (
		category string
		search   string
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Print the public gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := gallery.Query{Category: models.Category(category), Search: search}
			if q.Category != models.CategoryAll && !q.Category.Valid() {
				return fmt.Errorf("unknown category %q", category)
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			view := gallery.NewGalleryView(c.Documents(), opts.logger(), nil)
			view.SetQuery(q)

			loaded := make(chan struct{}, 1)
			unsub := view.Store().Subscribe(func([]models.PhotoRecord) {
				select {
				case loaded <- struct{}{}:
				default:
				}
			})
			defer unsub()

			if err := view.Open(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "gallery unavailable, showing samples:", err)
			}
			defer view.Close()

			select {
			case <-loaded:
			case <-time.After(firstLoadTimeout):
				return fmt.Errorf("no photos received within %s", firstLoadTimeout)
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			photos := view.Photos()
			if opts.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(photos)
			}
			sh := &shell{out: cmd.OutOrStdout()}
			sh.table(photos)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", string(models.CategoryAll), "category filter")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive title/description search")
	return cmd
}
