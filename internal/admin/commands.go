package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/server/auth"
	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
	"github.com/dmitrijs2005/mangakeeper/internal/server/services"
	"github.com/spf13/cobra"
)

// ErrInconsistent is returned by verify when any collection no longer
// matches its archive.
var ErrInconsistent = errors.New("inconsistent collections found")

const stampLayout = "2006-01-02 15:04"

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		mode   string
		query  string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(b Backend) error {
				items, err := b.List(cmd.Context(), models.ListFilter{
					Query: query,
					Mode:  models.ListMode(mode),
					Limit: limit,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), items)
				}
				printCollections(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(models.ListAll), "all, in-progress or recent")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive title filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows (0 for the mode default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func printCollections(out io.Writer, items []*models.Collection) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No collections")
		return
	}

	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{
			c.ID,
			c.Title,
			strconv.Itoa(c.TotalPages),
			progressLabel(c),
			c.UploadedAt.Local().Format(stampLayout),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Pages", "Progress", "Uploaded"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func progressLabel(c *models.Collection) string {
	switch {
	case c.Finished():
		return "done"
	case c.InProgress():
		return fmt.Sprintf("%d/%d", c.LastPageRead, c.TotalPages)
	default:
		return "-"
	}
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [id...]",
		Short: "Re-index stored archives and compare them with the catalog",
		Long:  "Re-index stored archives and compare them with the catalog. Without ids every collection is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(b Backend) error {
				ids := args
				if len(ids) == 0 {
					items, err := b.List(cmd.Context(), models.ListFilter{Mode: models.ListAll})
					if err != nil {
						return err
					}
					for _, c := range items {
						ids = append(ids, c.ID)
					}
				}

				bad := 0
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					r, err := b.Verify(cmd.Context(), id)
					if err != nil {
						bad++
						rows = append(rows, []string{id, "", "", "", "error: " + err.Error()})
						continue
					}
					status := "ok"
					if !r.Consistent() {
						bad++
						status = mismatchLabel(r)
					}
					rows = append(rows, []string{
						r.ID,
						strconv.Itoa(r.StoredPages),
						strconv.Itoa(r.ArchivePages),
						strconv.FormatBool(r.NamesMatch),
						status,
					})
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No collections")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Stored", "Archive", "Names match", "Status"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				if bad > 0 {
					return fmt.Errorf("%w: %d of %d", ErrInconsistent, bad, len(rows))
				}
				return nil
			})
		},
	}
}

func mismatchLabel(r *services.VerifyReport) string {
	if r.MismatchFirst >= 0 {
		return fmt.Sprintf("mismatch at page %d", r.MismatchFirst)
	}
	return "mismatch"
}

func newResyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Rebuild missing catalog rows from stored metadata sidecars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(b Backend) error {
				res, err := b.Resync(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created: %d\nSkipped: %d\nFailed:  %d\n", res.Created, res.Skipped, res.Failed)
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a collection from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(b Backend) error {
				if err := b.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(b Backend) error {
				if err := b.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var (
		subject  string
		validity time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("validity") {
				validity = cfg.AdminTokenValidity
			}
			if validity <= 0 {
				return errors.New("validity must be positive")
			}
			if subject == "" {
				return errors.New("subject is required")
			}

			tok, err := auth.GenerateToken(subject, []byte(cfg.SecretKey), validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&validity, "validity", 0, "Token lifetime (defaults to the configured admin token validity)")

	return cmd
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
