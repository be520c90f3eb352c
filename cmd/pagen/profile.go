package main

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Simplici0/pagen/internal/settings"
)

func (a *app) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved settings profiles",
	}
	cmd.AddCommand(
		a.newProfileSaveCmd(),
		a.newProfileListCmd(),
		a.newProfileShowCmd(),
		a.newProfileDeleteCmd(),
	)
	return cmd
}

func (a *app) newProfileSaveCmd() *cobra.Command {
	var src source
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save a settings document under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := a.load(ctx, src)
			if err != nil {
				return err
			}
			if _, err := settings.Resolve(doc); err != nil {
				return err
			}

			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			created, err := store.Save(ctx, args[0], doc)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "profile %q %s\n", args[0], verb)
			return err
		},
	}
	src.register(cmd, a.env.SettingsPath)
	return cmd
}

func (a *app) newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			list, err := store.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tUPDATED")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.UpdatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func (a *app) newProfileShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := settings.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			doc, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := settings.Encode(&buf, doc, f); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	return cmd
}

func (a *app) newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "profile %q deleted\n", args[0])
			return err
		},
	}
}
