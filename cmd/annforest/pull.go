package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull <name> <index-file>",
	Short: "Download an index file from S3",
	Args:  cobra.ExactArgs(2),
	RunE:  runPull,
}

func runPull(cmd *cobra.Command, args []string) error {
	store, err := newRemoteStore(cmd)
	if err != nil {
		return err
	}

	b, err := store.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	tmp, err := os.CreateTemp(filepath.Dir(args[1]), filepath.Base(args[1])+".tmp-*")
	if err != nil {
		return err
	}

	n, err := io.Copy(tmp, io.NewSectionReader(b, 0, b.Size()))
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), args[1]); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	cmd.Printf("pulled %s to %s (%d bytes)\n", args[0], args[1], n)

	return nil
}
