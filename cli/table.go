package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/clayextruder/stepdriver/components/motor/steptimer"
	"github.com/clayextruder/stepdriver/config"
)

// infoTable prints one row per configured axis with the pulse interval its move would run at.
func infoTable(cfg *config.Config) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("board %q (%s)", cfg.Board.Name, lo.Ternary(cfg.Board.Model == "", "fake", cfg.Board.Model)))
	t.AppendHeader(table.Row{"Axis", "Steps/Rev", "Step", "Dir", "Indicator", "Inverted", "Move", "Interval"})
	for _, axis := range cfg.Axes {
		move, interval := "-", "-"
		if axis.Move != nil {
			switch steptimer.ResolveMode(axis.Move.Steps, axis.Move.Speed) {
			case steptimer.ModeIdle:
				move = "stopped"
			case steptimer.ModeContinuous:
				move = fmt.Sprintf("continuous @ %d/min", axis.Move.Speed)
			case steptimer.ModeFinite:
				move = fmt.Sprintf("%d steps @ %d/min", axis.Move.Steps, axis.Move.Speed)
			}
			if us, err := steptimer.PulseInterval(uint32(axis.StepsPerRevolution), axis.Move.Speed); err == nil {
				interval = (time.Duration(us) * time.Microsecond).String()
			}
		}
		t.AppendRow(table.Row{
			axis.Name,
			axis.StepsPerRevolution,
			axis.Pins.Step,
			axis.Pins.Direction,
			lo.Ternary(axis.Pins.Indicator == "", "-", axis.Pins.Indicator),
			axis.DirectionInverted,
			move,
			interval,
		})
	}
	return t.Render()
}

// statusTable prints where every axis ended up.
func statusTable(statuses []steptimer.Status) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Axis", "Mode", "Speed", "Direction", "Position", "Remaining", "Pulses", "Overdue"})
	for _, s := range statuses {
		t.AppendRow(table.Row{
			s.Name,
			s.Mode.String(),
			s.Speed,
			s.Direction.String(),
			fmt.Sprintf("%d/%d", s.Position, s.StepsPerRevolution),
			s.StepsRemaining,
			s.Stats.Pulses,
			s.Stats.Overdue,
		})
	}
	return t.Render()
}
