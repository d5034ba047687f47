package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/designwheel/engine/internal/directory"
	"github.com/designwheel/engine/internal/services"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	now              = time.Now

	errEmptyPassword = errors.New("password must not be empty")
)

type commandLine struct {
	directory services.DirectoryService
	export    services.ExportService
}

func newRootCmd(cli *commandLine) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Design Wheel administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(cli.allowListCmd(), cli.exportCmd(), hashPasswordCmd())
	return root
}

func (cli *commandLine) allowListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowlist",
		Short: "Manage the student allow-list",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file|->",
		Short: "Add comma or newline separated student ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			res, err := cli.directory.ImportAllowList(cmd.Context(), raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "parsed %d, added %d, total %d\n", res.Parsed, res.Added, res.Total)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the allow-list, one id per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := cli.directory.AllowList(cmd.Context())
			if err != nil {
				return err
			}
			list := directory.NewAllowList(ids...)
			if list.Len() == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "allow-list is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), list.Format())
			return nil
		},
	})
	return cmd
}

func (cli *commandLine) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the class results sheet as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "-" {
				return cli.export.WriteResultsCSV(cmd.Context(), cmd.OutOrStdout())
			}
			if output == "" {
				output = cli.export.Filename(now())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := cli.export.WriteResultsCSV(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default design_thinker_results_<date>.csv)`)
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Prompt for a password and print its INSTRUCTOR_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password:")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if len(pwd) == 0 {
				return errEmptyPassword
			}
			hash, err := services.HashPassword(string(pwd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
