package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/clayextruder/stepdriver/components/board"
	"github.com/clayextruder/stepdriver/components/board/fake"
	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils/timebase"
)

type testApp struct {
	app   *cli.App
	board *fake.Board
	out   *bytes.Buffer
	logs  *observer.ObservedLogs
}

func newTestApp(t *testing.T, tb timebase.Timebase) *testApp {
	t.Helper()
	logger, logs := logging.NewObservedTestLogger(t)
	b := fake.NewBoard(nil)
	out := &bytes.Buffer{}
	d := deps{
		openBoard: func(board.Config, logging.Logger) (board.Board, error) { return b, nil },
		timebase:  tb,
		clock:     clock.New(),
		logger:    logger,
	}
	return &testApp{app: newApp(out, io.Discard, d), board: b, out: out, logs: logs}
}

func (ta *testApp) run(args ...string) error {
	return ta.app.Run(append([]string{"stepdriver"}, args...))
}

// risingEdges counts pulses on a fake pin that the app may not have opened yet.
func risingEdges(b *fake.Board, name string) int {
	if pin := b.Pin(name); pin != nil {
		return pin.RisingEdges()
	}
	return 0
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stepdriver.json5")
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

func TestInfoAction(t *testing.T) {
	ta := newTestApp(t, timebase.NewMock(0))
	test.That(t, ta.run("info"), test.ShouldBeNil)
	out := ta.out.String()
	test.That(t, out, test.ShouldContainSubstring, "AXIS")
	test.That(t, out, test.ShouldContainSubstring, "led")
	test.That(t, out, test.ShouldContainSubstring, "200")
	// info never opens the board
	test.That(t, ta.board.PinNames(), test.ShouldBeEmpty)

	path := writeConfig(t, `{
		axes: [
			{name: "extruder", pins: {step: "17", dir: "27"}, steps_per_revolution: 200, move: {steps: 400, speed: -120}},
			{name: "feeder", pins: {step: "5", dir: "6"}, steps_per_revolution: 48, move: {steps: 0, speed: 60}},
		],
	}`)
	ta = newTestApp(t, timebase.NewMock(0))
	test.That(t, ta.run("--config", path, "info"), test.ShouldBeNil)
	out = ta.out.String()
	test.That(t, out, test.ShouldContainSubstring, "extruder")
	test.That(t, out, test.ShouldContainSubstring, "400 steps @ -120/min")
	test.That(t, out, test.ShouldContainSubstring, "2.5ms")
	test.That(t, out, test.ShouldContainSubstring, "continuous @ 60/min")
	test.That(t, out, test.ShouldContainSubstring, "20.833ms")

	ta = newTestApp(t, timebase.NewMock(0))
	err := ta.run("--config", filepath.Join(t.TempDir(), "missing.json5"), "info")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot load config")
}

func TestMoveAction(t *testing.T) {
	t.Run("forward", func(t *testing.T) {
		ta := newTestApp(t, timebase.NewMock(0))
		test.That(t, ta.run("move", "--steps", "10", "--speed", "600"), test.ShouldBeNil)
		test.That(t, ta.board.Pin("step").RisingEdges(), test.ShouldEqual, 10)
		test.That(t, ta.board.CloseCount, test.ShouldEqual, 1)
		test.That(t, ta.out.String(), test.ShouldContainSubstring, "10/200")
		test.That(t, ta.out.String(), test.ShouldContainSubstring, "idle")
	})

	t.Run("reverse", func(t *testing.T) {
		ta := newTestApp(t, timebase.NewMock(0))
		test.That(t, ta.run("move", "--axis", "x", "--steps", "3", "--speed", "-600"), test.ShouldBeNil)
		test.That(t, ta.board.Pin("step").RisingEdges(), test.ShouldEqual, 3)
		test.That(t, ta.board.Pin("dir").History(), test.ShouldResemble, []bool{true})
		test.That(t, ta.out.String(), test.ShouldContainSubstring, "197/200")
	})

	t.Run("bad arguments", func(t *testing.T) {
		ta := newTestApp(t, timebase.NewMock(0))
		err := ta.run("move", "--steps", "0", "--speed", "600")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "use spin")

		err = ta.run("move", "--steps", "10")
		test.That(t, err, test.ShouldNotBeNil)

		err = ta.run("move", "--axis", "z", "--steps", "10", "--speed", "600")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `axis "z" not found`)
		test.That(t, ta.board.CloseCount, test.ShouldEqual, 1)
	})

	t.Run("step line failure", func(t *testing.T) {
		ta := newTestApp(t, timebase.NewMock(0))
		ta.board.FailPins["step"] = errors.New("line busy")
		err := ta.run("move", "--steps", "10", "--speed", "600")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "line busy")
		test.That(t, ta.board.CloseCount, test.ShouldEqual, 1)
	})
}

func TestDebugAxis(t *testing.T) {
	ta := newTestApp(t, timebase.NewMock(0))
	test.That(t, ta.run("--debug-axis", "x", "move", "--steps", "1", "--speed", "60"), test.ShouldBeNil)
	logger, ok := logging.LoggerNamed(axisLoggerName("x"))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)

	ta = newTestApp(t, timebase.NewMock(0))
	err := ta.run("--debug-axis", "y", "move", "--steps", "1", "--speed", "60")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `axis "y" not found`)
}

func TestSpinAction(t *testing.T) {
	ta := newTestApp(t, timebase.New(nil))
	test.That(t, ta.run("spin", "--speed", "6000", "--duration", "50ms"), test.ShouldBeNil)

	test.That(t, ta.board.Pin("step").RisingEdges(), test.ShouldBeGreaterThan, 0)
	led := ta.board.Pin("led").History()
	test.That(t, led[len(led)-1], test.ShouldBeTrue)
	test.That(t, ta.out.String(), test.ShouldContainSubstring, "idle")
	test.That(t, ta.logs.FilterMessage("spin finished").Len(), test.ShouldEqual, 1)

	ta = newTestApp(t, timebase.New(nil))
	err := ta.run("spin", "--speed", "0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunAction(t *testing.T) {
	moveConfig := func(steps string) string {
		return `{
			board: {name: "bench", model: "fake"},
			axes: [{name: "x", pins: {step: "step", dir: "dir"}, steps_per_revolution: 200, move: {steps: ` + steps + `, speed: 6000}}],
			loop_period: "100us",
		}`
	}

	t.Run("for a duration", func(t *testing.T) {
		path := writeConfig(t, moveConfig("5"))
		ta := newTestApp(t, timebase.New(nil))
		test.That(t, ta.run("--config", path, "run", "--no-watch", "--duration", "200ms"), test.ShouldBeNil)
		test.That(t, ta.board.Pin("step").RisingEdges(), test.ShouldEqual, 5)
		test.That(t, ta.board.CloseCount, test.ShouldEqual, 1)
		test.That(t, ta.out.String(), test.ShouldContainSubstring, "5/200")
	})

	t.Run("reapplies on change", func(t *testing.T) {
		path := writeConfig(t, moveConfig("5"))
		ta := newTestApp(t, timebase.New(nil))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() {
			done <- ta.app.RunContext(ctx, []string{"stepdriver", "--config", path, "run"})
		}()

		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			test.That(tb, ta.logs.FilterMessage("running").Len(), test.ShouldEqual, 1)
			test.That(tb, risingEdges(ta.board, "step"), test.ShouldEqual, 5)
		})

		test.That(t, os.WriteFile(path, []byte(moveConfig("7")), 0o600), test.ShouldBeNil)
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			test.That(tb, risingEdges(ta.board, "step"), test.ShouldEqual, 12)
		})

		cancel()
		test.That(t, <-done, test.ShouldBeNil)
		test.That(t, ta.logs.FilterMessage("config reloaded").Len(), test.ShouldBeGreaterThanOrEqualTo, 1)
		test.That(t, ta.board.CloseCount, test.ShouldEqual, 1)
	})
}
