package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/whatbot/flowedit/pkg/flowedit/media"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a media asset and print its public URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runUpload(cmd, args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	uploadCmd.Flags().String("kind", "image", "Asset kind: image, video, or document")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, path string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.MediaBaseURL == "" {
		return errors.New("no media service configured: set media_base_url in the settings file")
	}

	kindFlag, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	up := media.NewUploader(settings.MediaBaseURL, nil)
	upload, err := up.Upload(cmd.Context(), media.Kind(kindFlag), filepath.Base(path), contentType, info.Size(), f)
	if err != nil {
		return err
	}

	fmt.Println(upload.URL)
	return nil
}
