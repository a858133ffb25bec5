package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/airdraw/internal/store"
)

func newDrawingsCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drawings",
		Short: "Manage saved drawings",
	}
	cmd.AddCommand(newDrawingsListCmd(global))
	cmd.AddCommand(newDrawingsDeleteCmd(global))
	return cmd
}

func newDrawingsListCmd(global *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved drawings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(global)
			if err != nil {
				return err
			}
			defer st.Close()
			return listDrawings(cmd.OutOrStdout(), st, limit, time.Now())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of drawings to show")
	return cmd
}

func newDrawingsDeleteCmd(global *globalOptions) *cobra.Command {
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete drawings and their image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(global)
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			var errs []error
			for _, id := range args {
				if err := deleteDrawing(st, id, keepFiles); err != nil {
					printError(w, "%s: %v", id, err)
					errs = append(errs, err)
					continue
				}
				printSuccess(w, "deleted %s", id)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "leave the PNG files on disk")
	return cmd
}

func openStore(global *globalOptions) (*store.Store, error) {
	cfg, err := global.loadConfig()
	if err != nil {
		return nil, err
	}
	return store.New(cfg.DatabasePath())
}

func listDrawings(w io.Writer, st *store.Store, limit int, now time.Time) error {
	drawings, err := st.Drawings().List(limit)
	if err != nil {
		return err
	}
	total, err := st.Drawings().Count()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("Drawings (%d of %d)", len(drawings), total)))
	if len(drawings) == 0 {
		fmt.Fprintln(w, styleDim.Render("  nothing saved yet; press s while drawing"))
		return nil
	}

	for _, d := range drawings {
		fmt.Fprintln(w)
		printKeyValue(w, "id", d.ID)
		printKeyValue(w, "saved", fmt.Sprintf("%s (%s)", d.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.RelTime(d.CreatedAt, now, "ago", "from now")))
		printKeyValue(w, "size", fmt.Sprintf("%dx%d", d.Width, d.Height))
		if d.Color != "" {
			printKeyValue(w, "color", d.Color)
		}
		for _, p := range []string{d.CanvasPath, d.CombinedPath} {
			if p == "" {
				continue
			}
			line := p
			if info, err := os.Stat(p); err == nil {
				line += styleDim.Render(" " + humanize.Bytes(uint64(info.Size())))
			} else {
				line += styleDim.Render(" (missing)")
			}
			printFile(w, line)
		}
	}
	return nil
}

func deleteDrawing(st *store.Store, id string, keepFiles bool) error {
	d, err := st.Drawings().GetByID(id)
	if err != nil {
		return err
	}
	if err := st.Drawings().Delete(id); err != nil {
		return err
	}
	if keepFiles {
		return nil
	}
	for _, p := range []string{d.CanvasPath, d.CombinedPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
