package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hurttlocker/ratemyfit/internal/feedback"
	"github.com/hurttlocker/ratemyfit/internal/store"
	"github.com/hurttlocker/ratemyfit/internal/wardrobe"
)

func rateCmd(opts *globalOptions) *cobra.Command {
	var (
		userID string
		mode   string
		gender string
		event  string
		imgRef string
	)

	cmd := &cobra.Command{
		Use:   "rate <image>",
		Short: "Rate an outfit photo, store the rating and tag its clothing items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			if imgRef == "" {
				imgRef = args[0]
			}

			a, err := openApp(opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.service.Rate(cmd.Context(), wardrobe.RateRequest{
				UserID:   userID,
				ImageRef: imgRef,
				AnalysisRequest: feedback.AnalysisRequest{
					ImageBase64:  base64.StdEncoding.EncodeToString(data),
					Gender:       gender,
					Mode:         feedback.ParseMode(mode),
					EventContext: event,
				},
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user ID the rating belongs to")
	cmd.Flags().StringVar(&mode, "mode", "standard", "feedback mode: standard or roast")
	cmd.Flags().StringVar(&gender, "gender", "", "wearer gender hint and catalog filter")
	cmd.Flags().StringVar(&event, "event", "", "event context, e.g. \"summer wedding\"")
	cmd.Flags().StringVar(&imgRef, "ref", "", "image reference to store (default: the image path)")
	return cmd
}

func outfitCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outfit",
		Short: "Inspect and edit stored outfit ratings",
	}
	cmd.AddCommand(outfitListCmd(opts))
	cmd.AddCommand(outfitShowCmd(opts))
	cmd.AddCommand(outfitTagCmd(opts))
	cmd.AddCommand(outfitRemoveItemCmd(opts))
	cmd.AddCommand(outfitRenameItemCmd(opts))
	cmd.AddCommand(outfitDeleteCmd(opts))
	return cmd
}

// withService opens the app for an outfit subcommand and prints the entry fn returns.
func withService(opts *globalOptions, fn func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(opts, false)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := fn(cmd, a.service, args)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}

func outfitListCmd(opts *globalOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's outfit ratings, newest first",
		Args:  cobra.NoArgs,
		RunE: withService(opts, func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error) {
			entries, err := svc.List(cmd.Context(), userID)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No outfits found.")
				return nil, nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %2d/10  %d items  %s\n",
					e.ID, e.Score, len(e.Items), e.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil, nil
		}),
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user ID")
	return cmd
}

func outfitShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one outfit rating",
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error) {
			return svc.Get(cmd.Context(), args[0])
		}),
	}
}

func outfitTagCmd(opts *globalOptions) *cobra.Command {
	var gender string
	cmd := &cobra.Command{
		Use:   "tag <id>",
		Short: "Re-run extraction on a stored rating and replace its items",
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error) {
			entry, res, err := svc.Tag(cmd.Context(), args[0], gender)
			if err != nil {
				return nil, err
			}
			printItems(cmd.OutOrStdout(), entry.Items)
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d candidates, %d dropped\n", res.RunID, res.Stats.Candidates, res.Stats.Dropped)
			return nil, nil
		}),
	}
	cmd.Flags().StringVar(&gender, "gender", "", "catalog gender filter")
	return cmd
}

func outfitRemoveItemCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <id> <index>",
		Short: "Remove one extracted item from a rating",
		Args:  cobra.ExactArgs(2),
		RunE: withService(opts, func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error) {
			index, err := parseIndex(args[1])
			if err != nil {
				return nil, err
			}
			return itemsOf(svc.RemoveItem(cmd.Context(), args[0], index))
		}),
	}
}

func outfitRenameItemCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-item <id> <index> <name>",
		Short: "Correct the tag of one extracted item",
		Args:  cobra.ExactArgs(3),
		RunE: withService(opts, func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error) {
			index, err := parseIndex(args[1])
			if err != nil {
				return nil, err
			}
			return itemsOf(svc.RenameItem(cmd.Context(), args[0], index, args[2]))
		}),
	}
}

func outfitDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an outfit rating",
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, func(cmd *cobra.Command, svc *wardrobe.Service, args []string) (any, error) {
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return nil, err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil, nil
		}),
	}
}

func itemsOf(entry *store.WardrobeEntry, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return entry.Items, nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid item index %q", s)
	}
	return n, nil
}
