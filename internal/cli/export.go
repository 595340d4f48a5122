package cli

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/export"
)

var (
	exportOut        string
	exportEncryptKey string
	exportS3Bucket   string
	exportS3Region   string
)

var exportCmd = &cobra.Command{
	Use:   "export [source-id]",
	Short: "Export a source's documents and chunks as a bundle",
	Long: `Export streams every document (and its chunks) for a source as
newline-delimited JSON. With --encrypt-key it is sealed with AES-256-GCM
first (the key is SHA-256'd from the given passphrase to get 32 bytes).
With --s3-bucket the (possibly encrypted) bundle is uploaded to S3 instead
of written to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: <source-id>.jsonl[.enc])")
	exportCmd.Flags().StringVar(&exportEncryptKey, "encrypt-key", "", "passphrase to seal the bundle with AES-256-GCM")
	exportCmd.Flags().StringVar(&exportS3Bucket, "s3-bucket", "", "upload the bundle to this S3 bucket instead of writing locally")
	exportCmd.Flags().StringVar(&exportS3Region, "s3-region", "", "S3 region (required with --s3-bucket)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}
	sourceID := args[0]

	var buf bytes.Buffer
	if err := export.WriteBundle(cmd.Context(), storeSvc, &buf, sourceID); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	data := buf.Bytes()
	suffix := ".jsonl"
	if exportEncryptKey != "" {
		key := sha256.Sum256([]byte(exportEncryptKey))
		sealed, err := export.Encrypt(key[:], data)
		if err != nil {
			return fmt.Errorf("encrypt bundle: %w", err)
		}
		data = sealed
		suffix = ".jsonl.enc"
	}

	if exportS3Bucket != "" {
		uploader, err := export.NewS3Uploader(cmd.Context(), exportS3Region, exportS3Bucket, "", "")
		if err != nil {
			return fmt.Errorf("s3 uploader: %w", err)
		}
		key := fmt.Sprintf("context-cache/%s-%d%s", sourceID, time.Now().UnixNano(), suffix)
		url, err := uploader.Upload(cmd.Context(), key, data)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		cmd.Printf("Uploaded to %s\n", url)
		return nil
	}

	out := exportOut
	if out == "" {
		out = sourceID + suffix
	}
	if err := os.WriteFile(out, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	cmd.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}
