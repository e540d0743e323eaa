package overlay

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
)

func dots(w, h int) string {
	return strings.TrimSuffix(strings.Repeat(strings.Repeat(".", w)+"\n", h), "\n")
}

func TestPlace_Center(t *testing.T) {
	lines := strings.Split(Place(Config{Width: 5, Height: 3}, "XX\nXX", dots(5, 3)), "\n")

	assert.Len(t, lines, 3)
	assert.Equal(t, ".XX..", lines[0])
	assert.Equal(t, ".XX..", lines[1])
	assert.Equal(t, ".....", lines[2])
}

func TestPlace_TopAndBottom(t *testing.T) {
	top := strings.Split(Place(Config{Width: 5, Height: 5, Position: Top, PadY: 1}, "XX", dots(5, 5)), "\n")
	assert.Equal(t, ".....", top[0])
	assert.Equal(t, ".XX..", top[1])

	bottom := strings.Split(Place(Config{Width: 5, Height: 5, Position: Bottom}, "XX", dots(5, 5)), "\n")
	assert.Equal(t, ".XX..", bottom[4])
	assert.Equal(t, ".....", bottom[0])
}

func TestPlace_BottomRight(t *testing.T) {
	lines := strings.Split(Place(Config{Width: 6, Height: 3, Position: BottomRight, PadX: 1, PadY: 0}, "ok", dots(6, 3)), "\n")
	assert.Equal(t, "...ok.", lines[2])
}

func TestPlace_KeepsBackgroundOnBothSides(t *testing.T) {
	lines := strings.Split(Place(Config{Width: 5, Height: 3}, "X", "ABCDE\nFGHIJ\nKLMNO"), "\n")
	assert.Equal(t, "FGXIJ", lines[1])
}

func TestPlace_PadsShortBackground(t *testing.T) {
	lines := strings.Split(Place(Config{Width: 4, Height: 3}, "X", ""), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, " X  ", lines[1])
}

func TestPlace_ForegroundWiderThanViewport(t *testing.T) {
	lines := strings.Split(Place(Config{Width: 3, Height: 1}, "XXXXX", "AAA"), "\n")
	assert.Equal(t, "XXXXX", lines[0])
}

func TestPlace_PreservesANSI(t *testing.T) {
	bg := "\x1b[31mRED\x1b[0m\n\x1b[31mRED\x1b[0m\n\x1b[31mRED\x1b[0m"
	out := Place(Config{Width: 3, Height: 3}, "X", bg)
	assert.Contains(t, out, "\x1b[31m")
}

func TestOrigin_Clamps(t *testing.T) {
	x, y := origin(Config{Width: 5, Height: 5}, 10, 10)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)

	x, y = origin(Config{Width: 10, Height: 10, Position: Bottom, PadY: 1}, 4, 2)
	assert.Equal(t, 3, x)
	assert.Equal(t, 7, y)
}

func TestPlace_CenterGolden(t *testing.T) {
	out := Place(Config{Width: 20, Height: 10}, "+------+\n| TRIP |\n+------+", dots(20, 10))
	teatest.RequireEqualOutput(t, []byte(out))
}

func TestPlace_BottomRightGolden(t *testing.T) {
	out := Place(Config{Width: 20, Height: 10, Position: BottomRight, PadX: 2, PadY: 1}, "[ saved ]", dots(20, 10))
	teatest.RequireEqualOutput(t, []byte(out))
}
