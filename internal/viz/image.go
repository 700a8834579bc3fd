package viz

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// HalfBlock renders img at width columns using '▀': the foreground is the
// upper pixel and the background the lower one. Height follows the aspect
// ratio with two pixel rows per line.
func HalfBlock(img image.Image, width int) string {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	height := width * b.Dy() / b.Dx()
	if height%2 == 1 {
		height++
	}
	if height < 2 {
		height = 2
	}
	small := transform.Resize(img, width, height, transform.Linear)

	var out strings.Builder
	for y := 0; y < height; y += 2 {
		if y > 0 {
			out.WriteByte('\n')
		}
		for x := 0; x < width; x++ {
			top := hexOf(small, x, y)
			bottom := hexOf(small, x, y+1)
			out.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
	}
	return out.String()
}

func hexOf(img *image.RGBA, x, y int) string {
	c, ok := colorful.MakeColor(img.RGBAAt(x, y))
	if !ok {
		// fully transparent
		return "#000000"
	}
	return c.Hex()
}

// Placeholder is shown where an image is not available yet.
func Placeholder(label string, width, height int) string {
	msg := fmt.Sprintf("no %s image", label)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, Subtle.Render(msg))
}
