package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"upload-service/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the upload root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openStorage()
		if err != nil {
			return err
		}
		if err := svc.Init(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Upload root ready at %s\n", svc.Root())
		return nil
	},
}

type fileEntry struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openStorage()
		if err != nil {
			return err
		}
		listing, err := svc.LoadAll(cmd.Context())
		if err != nil {
			return err
		}
		defer listing.Close()

		entries := []fileEntry{}
		for listing.Next() {
			info, err := svc.Stat(listing.Name())
			if err != nil {
				// Subdirectories are listed but never stored through Store.
				continue
			}
			entries = append(entries, fileEntry{Filename: listing.Name(), Size: info.Size(), Modified: info.ModTime()})
		}
		if err := listing.Err(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No files stored.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Filename, humanize.Bytes(uint64(e.Size)), humanize.Time(e.Modified))
		}
		return tw.Flush()
	},
}

var putCmd = &cobra.Command{
	Use:   "put <path>...",
	Short: "Store local files",
	Long: `Store local files under their base names.

Each file goes through the same checks as an HTTP upload. Failures are
reported per file and the command exits non-zero if any file was rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openStorage()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			if err := putFile(cmd, svc, path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "stored %s\n", filepath.Base(path))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files rejected", failed, len(args))
		}
		return nil
	},
}

func putFile(cmd *cobra.Command, svc *storage.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	return svc.Store(cmd.Context(), storage.Upload{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Content:  f,
	})
}

var keepRoot bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openStorage()
		if err != nil {
			return err
		}
		if err := svc.DeleteAll(cmd.Context()); err != nil {
			return err
		}
		if keepRoot {
			if err := svc.Init(cmd.Context()); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", svc.Root())
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&keepRoot, "keep-root", true, "recreate an empty upload root after deleting")
}
