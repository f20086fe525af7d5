package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents with their stored page counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.Store.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILENAME\tPAGES\tINDEXED\tUPLOADED")
		for _, doc := range docs {
			indexed, err := a.Store.CountPages(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("failed to count pages of %s: %w", doc.ID, err)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
				doc.ID, doc.Filename, doc.PageCount, indexed, doc.UploadDate.Local().Format(time.DateTime))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d document(s)\n", len(docs))
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <document-id> <question...>",
	Short: "Ask a question about an ingested document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.Chat.Answer(ctx, args[0], strings.Join(args[1:], " "))

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Answer)
		if len(resp.Sources) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for _, s := range resp.Sources {
				fmt.Fprintf(out, "  page %d (relevance %.2f)\n", s.Page, s.Relevance)
			}
		}
		return nil
	},
}
