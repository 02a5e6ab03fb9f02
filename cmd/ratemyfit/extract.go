package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/feedback"
)

func extractCmd(opts *globalOptions) *cobra.Command {
	var (
		suggestions []string
		gender      string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "extract [feedback text]",
		Short: "Extract clothing item tags from feedback text (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 && len(suggestions) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}
			in := extract.Input{Feedback: text, Suggestions: suggestions, Gender: gender}
			if strings.TrimSpace(in.Text()) == "" {
				return fmt.Errorf("no feedback text given")
			}

			a, err := openApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.pipeline.Extract(cmd.Context(), in)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printItems(cmd.OutOrStdout(), res.Items)
			for src, msg := range res.Stats.SourceErrors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s source failed: %s\n", src, msg)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&suggestions, "suggestion", "s", nil, "suggestion text (repeatable)")
	cmd.Flags().StringVar(&gender, "gender", "", "catalog gender filter: men, women or unisex")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printItems(w io.Writer, items []extract.ExtractedItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No clothing items found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tITEM\tCATEGORY\tCONFIDENCE\tSOURCE")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n", i, it.Name, it.Category, it.Confidence, it.Source)
	}
	tw.Flush()
}

func parseFeedbackCmd() *cobra.Command {
	var (
		mode         string
		requireStyle bool
		seed         uint64
	)

	cmd := &cobra.Command{
		Use:   "parse-feedback [file]",
		Short: "Recover a rating response from raw model output (file or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			popts := feedback.ParseOptions{
				Mode:                 feedback.ParseMode(mode),
				RequireStyleAnalysis: requireStyle,
			}
			if seed != 0 {
				popts.Rand = rand.New(rand.NewPCG(seed, seed))
			}
			return printJSON(cmd.OutOrStdout(), feedback.Parse(string(data), popts))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "standard", "feedback mode: standard or roast")
	cmd.Flags().BoolVar(&requireStyle, "require-style", false, "require the styleAnalysis block in standard mode")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for fallback content (0 = random)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
