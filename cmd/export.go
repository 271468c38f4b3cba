/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/mooddiary/apiserver/internal/db"
	"github.com/mooddiary/apiserver/internal/services"
	"github.com/mooddiary/apiserver/internal/storage"
	"github.com/mooddiary/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var exportUsername string

// exportCmd writes a JSON snapshot of one user's diaries to object storage.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's diaries to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			if errors.Is(err, storage.ErrDisabled) {
				return errors.New("export needs STORAGE_BACKEND=minio or gcs")
			}
			return err
		}

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		exporter := services.NewExportService(
			store.NewUserRepository(dbConn),
			store.NewDiaryRepository(dbConn),
			objects,
		)
		res, err := exporter.Export(ctx, exportUsername)
		if err != nil {
			return err
		}

		logger.Info("diaries exported", "bucket", objects.Bucket(), "key", res.Key, "entries", res.Entries)
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s (%d entries)\n", objects.Bucket(), res.Key, res.Entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportUsername, "username", "", "user whose diaries are exported")
	_ = exportCmd.MarkFlagRequired("username")
}
