package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"contas/internal/backup"
	"contas/internal/cli"
	"contas/internal/services"
	"contas/internal/sheets/xlsx"
)

// settle commits pc when confirmed; otherwise it describes the change and
// drops it.
func settle(ctx context.Context, out io.Writer, s *services.Session, pc services.PendingChange, confirmed bool) error {
	if !confirmed {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
			"%s would affect %d records; re-run with --yes to apply", pc.Kind, pc.Affected)))
		return s.Discard(pc.ID)
	}
	if _, err := s.Commit(ctx, pc.ID); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s applied to %d records", pc.Kind, pc.Affected)))
	return nil
}

// writeTo streams write into path, or stdout when path is "" or "-".
func writeTo(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Saved "+path))
	return nil
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore a full backup",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write the records and the taxonomy as a JSON backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, s *services.Session) error {
				return writeTo(cmd, firstArg(args), s.ExportBackup)
			})
		},
	})

	var yes bool
	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace everything with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withSession(cmd, func(ctx context.Context, s *services.Session) error {
				b, err := s.ReadBackup(f)
				if err != nil {
					return err
				}
				return settle(ctx, cmd.OutOrStdout(), s, s.ProposeRestore(b), yes)
			})
		},
	}
	restore.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking")
	cmd.AddCommand(restore)
	return cmd
}

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Export or import the group, subgroup and code taxonomy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write the taxonomy file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ context.Context, s *services.Session) error {
				return writeTo(cmd, firstArg(args), s.ExportTaxonomy)
			})
		},
	})

	var replace, yes bool
	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a taxonomy file into the current one, or replace it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			tax, err := backup.DecodeTaxonomyFile(f)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *services.Session) error {
				if !replace {
					if err := s.MergeTaxonomy(ctx, tax); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Taxonomy merged"))
					return nil
				}
				pc, err := s.ProposeReplaceTaxonomy(tax)
				if err != nil {
					return err
				}
				return settle(ctx, cmd.OutOrStdout(), s, pc, yes)
			})
		},
	}
	imp.Flags().BoolVar(&replace, "replace", false, "replace the taxonomy instead of merging")
	imp.Flags().BoolVarP(&yes, "yes", "y", false, "apply a replacement without asking")
	cmd.AddCommand(imp)
	return cmd
}

func importCmd() *cobra.Command {
	var replace, yes bool

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import payables from the first sheet of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := services.ImportAppend
			if replace {
				mode = services.ImportReplace
			}
			return withSession(cmd, func(ctx context.Context, s *services.Session) error {
				out, err := s.ImportSpreadsheetFrom(ctx, &xlsx.File{Path: args[0]}, mode)
				if err != nil {
					return err
				}
				if out.Pending != nil {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(fmt.Sprintf(
						"%d rows read, %d skipped", out.Imported, out.Skipped)))
					return settle(ctx, cmd.OutOrStdout(), s, *out.Pending, yes)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
					"%d payables imported, %d rows skipped", out.Imported, out.Skipped)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace every payable with the imported rows")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply a replacement without asking")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
