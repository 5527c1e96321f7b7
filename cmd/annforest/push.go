package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/hupe1980/annforest/blobstore/s3"
)

var (
	flagRemoteBucket string
	flagRemotePrefix string
	flagRemoteRegion string
)

var pushCmd = &cobra.Command{
	Use:   "push <index-file> <name>",
	Short: "Upload an index file to S3",
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

func init() {
	for _, c := range []*cobra.Command{pushCmd, pullCmd} {
		c.Flags().StringVarP(&flagRemoteBucket, "bucket", "b", "", "S3 bucket (required)")
		c.Flags().StringVarP(&flagRemotePrefix, "prefix", "p", "indexes/", "Key prefix inside the bucket")
		c.Flags().StringVar(&flagRemoteRegion, "region", "", "AWS region (defaults to the SDK config chain)")
		_ = c.MarkFlagRequired("bucket")
	}

	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
}

func newRemoteStore(cmd *cobra.Command) (*s3.Store, error) {
	var optFns []func(*config.LoadOptions) error
	if flagRemoteRegion != "" {
		optFns = append(optFns, config.WithRegion(flagRemoteRegion))
	}

	cfg, err := config.LoadDefaultConfig(cmd.Context(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("cannot load AWS config: %w", err)
	}

	return s3.NewStore(awss3.NewFromConfig(cfg), flagRemoteBucket, flagRemotePrefix), nil
}

func runPush(cmd *cobra.Command, args []string) error {
	store, err := newRemoteStore(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := store.Create(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	cmd.Printf("pushed %s to s3://%s/%s%s (%d bytes)\n",
		args[0], flagRemoteBucket, flagRemotePrefix, args[1], n)

	return nil
}
