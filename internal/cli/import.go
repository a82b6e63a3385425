package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mini-rodalies-3d/subway/internal/gtfs"
	"github.com/mini-rodalies-3d/subway/internal/section"
	"github.com/mini-rodalies-3d/subway/models"
	"github.com/mini-rodalies-3d/subway/repository"
)

// ErrEmptyPlan is returned when a plan has no sections to import
var ErrEmptyPlan = errors.New("line plan has no sections")

func newImportGTFSCmd(open storeOpener) *cobra.Command {
	var zipPath, route string

	cmd := &cobra.Command{
		Use:   "import-gtfs",
		Short: "Create a line from a route in a GTFS feed",
		Long: `import-gtfs takes the route's longest trip, creates any stations that do
not exist yet (matched by name) and builds the line section by section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := gtfs.Parse(zipPath)
			if err != nil {
				return err
			}
			plan, err := gtfs.BuildLinePlan(data, route)
			if err != nil {
				return err
			}

			return withStore(cmd, open, func(ctx context.Context, store repository.Store) error {
				line, err := ImportPlan(ctx, store, plan)
				if err != nil {
					return err
				}
				printLine(cmd.OutOrStdout(), line)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&zipPath, "zip", "", "Path to the GTFS zip file")
	cmd.Flags().StringVar(&route, "route", "", "route_short_name of the route to import")
	cmd.MarkFlagRequired("zip")
	cmd.MarkFlagRequired("route")
	return cmd
}

// ImportPlan creates the plan's line. Stations are matched by name and
// created when missing. The whole plan is checked against an in-memory chain
// first, so a rejected plan writes nothing. The first section then creates the
// line and every following one goes through AddSection; if a write still
// fails, the line and any stations created for it are removed again.
func ImportPlan(ctx context.Context, store repository.Store, plan *gtfs.LinePlan) (*models.Line, error) {
	sections, err := checkPlan(plan)
	if err != nil {
		return nil, err
	}

	existing, err := store.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	stationIDs := make(map[string]int64, len(existing))
	for _, st := range existing {
		stationIDs[st.Name] = st.ID
	}

	var (
		line    *models.Line
		created []int64
	)
	undo := func(cause error) error {
		if line != nil {
			if err := store.DeleteLine(ctx, line.ID); err != nil {
				log.Printf("Warning: failed to remove partial line %d: %v", line.ID, err)
			}
		}
		for _, id := range created {
			if err := store.DeleteStation(ctx, id); err != nil {
				log.Printf("Warning: failed to remove station %d: %v", id, err)
			}
		}
		return cause
	}

	resolve := func(stop gtfs.Stop) (int64, error) {
		if id, ok := stationIDs[stop.StopName]; ok {
			return id, nil
		}
		st, err := store.CreateStation(ctx, models.StationRequest{Name: stop.StopName})
		if err != nil {
			return 0, fmt.Errorf("failed to create station %q: %w", stop.StopName, err)
		}
		log.Printf("Created station %d (%s)", st.ID, st.Name)
		stationIDs[st.Name] = st.ID
		created = append(created, st.ID)
		return st.ID, nil
	}

	for _, sec := range sections {
		up, err := resolve(sec.Up)
		if err != nil {
			return nil, undo(err)
		}
		down, err := resolve(sec.Down)
		if err != nil {
			return nil, undo(err)
		}

		if line == nil {
			req := models.LineRequest{
				Name:          plan.Name,
				Color:         plan.Color,
				UpStationID:   up,
				DownStationID: down,
				Distance:      sec.Distance,
			}
			if err := req.Validate(); err != nil {
				return nil, undo(err)
			}
			if line, err = store.CreateLine(ctx, req); err != nil {
				return nil, undo(fmt.Errorf("failed to create line %q: %w", plan.Name, err))
			}
			continue
		}

		req := models.SectionRequest{UpStationID: up, DownStationID: down, Distance: sec.Distance}
		if _, err := store.AddSection(ctx, line.ID, req); err != nil {
			return nil, undo(fmt.Errorf("failed to add section %s -> %s: %w", sec.Up.StopName, sec.Down.StopName, err))
		}
	}

	log.Printf("Imported line %s with %d sections", plan.Name, len(sections))
	return store.GetLine(ctx, line.ID)
}

// checkPlan runs the plan through a chain keyed by station name and returns
// the sections to write. Pairs whose stops share a name are dropped.
func checkPlan(plan *gtfs.LinePlan) ([]gtfs.PlannedSection, error) {
	keys := make(map[string]section.StationID)
	key := func(stop gtfs.Stop) section.StationID {
		id, ok := keys[stop.StopName]
		if !ok {
			id = section.StationID(len(keys) + 1)
			keys[stop.StopName] = id
		}
		return id
	}

	chain := section.New()
	kept := make([]gtfs.PlannedSection, 0, len(plan.Sections))
	for _, sec := range plan.Sections {
		up, down := key(sec.Up), key(sec.Down)
		if up == down {
			log.Printf("Skipping section %s -> %s: same station name", sec.Up.StopID, sec.Down.StopID)
			continue
		}
		if _, err := chain.Insert(section.Segment{Up: up, Down: down, Distance: sec.Distance}); err != nil {
			return nil, fmt.Errorf("failed to add section %s -> %s: %w", sec.Up.StopName, sec.Down.StopName, err)
		}
		kept = append(kept, sec)
	}

	if len(kept) == 0 {
		return nil, ErrEmptyPlan
	}
	return kept, nil
}
