package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/subway/models"
	"github.com/mini-rodalies-3d/subway/repository"
)

func newMigrateCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies the schema
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			})
		},
	}
}

func newStationsCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List all stations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				stations, err := store.ListStations(ctx)
				if err != nil {
					return err
				}
				for _, st := range stations {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", st.ID, st.Name)
				}
				return nil
			})
		},
	}
}

func newAddStationCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "add-station <name>",
		Short: "Create a station",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.StationRequest{Name: args[0]}
			if err := req.Validate(); err != nil {
				return err
			}
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				st, err := store.CreateStation(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created station %d (%s)\n", st.ID, st.Name)
				return nil
			})
		},
	}
}

func newLinesCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "lines",
		Short: "List all lines with their stations in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				lines, err := store.ListLines(ctx)
				if err != nil {
					return err
				}
				for i := range lines {
					printLineSummary(cmd.OutOrStdout(), &lines[i])
				}
				return nil
			})
		},
	}
}

func newLineCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "line <lineId>",
		Short: "Show a line's sections in travel order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := parseID(args[0], "lineId")
			if err != nil {
				return err
			}
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				line, err := store.GetLine(ctx, lineID)
				if err != nil {
					return err
				}
				printLine(cmd.OutOrStdout(), line)
				return nil
			})
		},
	}
}

func newAddSectionCmd(open storeOpener) *cobra.Command {
	var req models.SectionRequest

	cmd := &cobra.Command{
		Use:   "add-section <lineId>",
		Short: "Add a section to a line, splitting an existing one if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := parseID(args[0], "lineId")
			if err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				change, err := store.AddSection(ctx, lineID, req)
				if err != nil {
					return err
				}
				return printChange(ctx, cmd.OutOrStdout(), store, change)
			})
		},
	}
	cmd.Flags().Int64Var(&req.UpStationID, "up", 0, "Up station ID")
	cmd.Flags().Int64Var(&req.DownStationID, "down", 0, "Down station ID")
	cmd.Flags().IntVar(&req.Distance, "distance", 0, "Distance between the stations")
	cmd.MarkFlagRequired("up")
	cmd.MarkFlagRequired("down")
	cmd.MarkFlagRequired("distance")
	return cmd
}

func newRemoveStationCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-station <lineId> <stationId>",
		Short: "Remove a station from a line, merging its neighbouring sections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := parseID(args[0], "lineId")
			if err != nil {
				return err
			}
			stationID, err := parseID(args[1], "stationId")
			if err != nil {
				return err
			}
			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				change, err := store.RemoveStation(ctx, lineID, stationID)
				if err != nil {
					return err
				}
				return printChange(ctx, cmd.OutOrStdout(), store, change)
			})
		},
	}
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func printLineSummary(w io.Writer, line *models.Line) {
	names := make([]string, len(line.Stations))
	for i, st := range line.Stations {
		names[i] = st.Name
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", line.ID, line.Name, line.Color, strings.Join(names, " -> "))
}

func printLine(w io.Writer, line *models.Line) {
	names := make(map[int64]string, len(line.Stations))
	for _, st := range line.Stations {
		names[st.ID] = st.Name
	}

	fmt.Fprintf(w, "Line %d: %s (%s)\n", line.ID, line.Name, line.Color)
	for _, sec := range line.Sections {
		fmt.Fprintf(w, "  %s -> %s\t%d\n", names[sec.UpStationID], names[sec.DownStationID], sec.Distance)
	}
	fmt.Fprintf(w, "  %d stations, total distance %d\n", len(line.Stations), line.TotalDistance)
}

func printChange(ctx context.Context, w io.Writer, store repository.Store, change *models.SectionChange) error {
	fmt.Fprintf(w, "Change %s: %d removed, %d added\n", change.ChangeID, len(change.Removed), len(change.Added))

	line, err := store.GetLine(ctx, change.LineID)
	if err != nil {
		return err
	}
	printLine(w, line)
	return nil
}
