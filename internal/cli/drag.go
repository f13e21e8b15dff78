package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"daygrid/internal/drag"
	"daygrid/internal/layout"
	"daygrid/internal/model"
)

// scriptTarget replays a scripted gesture through drag.Target.
type scriptTarget struct {
	captured map[int]bool
	move     []func(drag.PointerEvent)
	up       []func(drag.PointerEvent)
}

func (t *scriptTarget) CapturePointer(id int)         { t.captured[id] = true }
func (t *scriptTarget) ReleasePointer(id int)         { delete(t.captured, id) }
func (t *scriptTarget) HasPointerCapture(id int) bool { return t.captured[id] }

func (t *scriptTarget) OnMove(fn func(drag.PointerEvent)) func() { return listen(&t.move, fn) }
func (t *scriptTarget) OnUp(fn func(drag.PointerEvent)) func()   { return listen(&t.up, fn) }

// A scripted gesture never cancels.
func (t *scriptTarget) OnCancel(func(drag.PointerEvent)) func() { return func() {} }

func listen(list *[]func(drag.PointerEvent), fn func(drag.PointerEvent)) func() {
	i := len(*list)
	*list = append(*list, fn)
	return func() { (*list)[i] = nil }
}

func fire(list []func(drag.PointerEvent), pe drag.PointerEvent) {
	for _, fn := range slices.Clone(list) {
		if fn != nil {
			fn(pe)
		}
	}
}

func newDragCmd(app *App) *cobra.Command {
	var grabY, toY, top, scrollTop, hourHeight float64
	var snap, steps int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "drag <event-id>",
		Short: "Simulate a pointer drag on an event and commit the result",
		Long: strings.TrimSpace(`
Replay a drag gesture through the same controller the TUI and web UI use.

Y coordinates are client pixels: the grid starts at --top and is scrolled by
--scroll-top, with --hour-height pixels per hour. The drop position is snapped
to --snap minutes and clamped inside the event's day.
`),
		Example: strings.TrimSpace(`
  # Grab a 09:00 event at its top edge and drop it one hour lower
  daygrid drag evt-ab23cd45 --grab-y 576 --to-y 640

  # Preview only
  daygrid drag evt-ab23cd45 --grab-y 576 --to-y 700 --dry-run
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			ev, ok := db.FindEvent(id)
			if !ok {
				return writeErr(cmd, errNotFound("event", id))
			}
			before := *ev
			cfg := loadConfigOrDefault()
			loc := location(cfg)
			if hourHeight <= 0 {
				hourHeight = cfg.EffectiveHourHeight()
			}
			if snap <= 0 {
				snap = cfg.EffectiveSnapMinutes()
			}

			previews := []model.Draft{}
			var committed *model.Draft
			ctrl := drag.New(drag.Config{
				Container: func() (drag.Viewport, bool) {
					return drag.Viewport{Top: top, ScrollTop: scrollTop}, true
				},
				DayAnchor:   layout.StartOfDay(before.Start.In(loc)),
				HourHeight:  hourHeight,
				SnapMinutes: snap,
				OnPreview: func(d *model.Draft) {
					if d != nil {
						previews = append(previews, *d)
					}
				},
				OnCommit: func(d model.Draft) { committed = &d },
			})

			const pointerID = 1
			target := &scriptTarget{captured: map[int]bool{}}
			ctrl.Bind(before).OnPointerDown(target, drag.PointerEvent{PointerID: pointerID, ClientY: grabY})
			// A click (no travel) sends no moves, so it never commits.
			if toY == grabY {
				steps = 0
			}
			for i := 1; i <= steps; i++ {
				y := grabY + (toY-grabY)*float64(i)/float64(steps)
				fire(target.move, drag.PointerEvent{PointerID: pointerID, ClientY: y})
			}
			fire(target.up, drag.PointerEvent{PointerID: pointerID, ClientY: toY})

			after := before
			persisted := false
			if committed != nil && !dryRun {
				after, err = s.MoveEvent(*committed)
				if err != nil {
					return writeErr(cmd, storeErr(err, id))
				}
				persisted = true
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"before":    before,
					"previews":  previews,
					"draft":     committed,
					"committed": persisted,
					"event":     after,
				},
			})
		},
	}
	cmd.Flags().Float64Var(&grabY, "grab-y", 0, "Client Y where the pointer goes down")
	cmd.Flags().Float64Var(&toY, "to-y", 0, "Client Y where the pointer is released")
	cmd.Flags().Float64Var(&top, "top", 0, "Client Y of the grid container's top edge")
	cmd.Flags().Float64Var(&scrollTop, "scroll-top", 0, "Scroll offset of the grid container")
	cmd.Flags().Float64Var(&hourHeight, "hour-height", 0, "Pixels per hour (default: config)")
	cmd.Flags().IntVar(&snap, "snap", 0, "Snap interval in minutes (default: config, 15)")
	cmd.Flags().IntVar(&steps, "steps", 1, "Intermediate pointer moves between grab and drop")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the result without saving it")
	_ = cmd.MarkFlagRequired("grab-y")
	_ = cmd.MarkFlagRequired("to-y")
	return cmd
}
