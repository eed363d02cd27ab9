package vizengine

import "image/color"

// DomainPalette colors the top-level subtrees of the radial view; each
// root child takes the next color and its whole subtree inherits it.
var DomainPalette = []color.RGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
	{214, 39, 40, 255},
	{148, 103, 189, 255},
	{140, 86, 75, 255},
	{227, 119, 194, 255},
	{127, 127, 127, 255},
	{188, 189, 34, 255},
	{23, 190, 207, 255},
}

// GeneColors are the three stacked-segment colors in fixed order: coding,
// non-coding, pseudogene.
var GeneColors = [3]color.RGBA{
	{0, 191, 255, 255},
	{173, 255, 47, 255},
	{255, 99, 71, 255},
}

// GeneNames label the segments in the legend and tooltip.
var GeneNames = [3]string{"coding", "non-coding", "pseudogene"}

var (
	ColorBackground = color.RGBA{8, 10, 15, 255}
	ColorOutline    = color.RGBA{36, 42, 53, 255}
	ColorPanel      = color.RGBA{0, 0, 0, 100}
	ColorText       = color.RGBA{255, 255, 255, 255}
	ColorDimText    = color.RGBA{160, 168, 180, 255}
	ColorHover      = color.RGBA{255, 255, 0, 255}
	ColorSelect     = color.RGBA{255, 255, 255, 255}
	ColorError      = color.RGBA{255, 80, 80, 255}
	ColorCircle     = color.RGBA{52, 80, 120, 70}
)

func domainColor(idx int) color.RGBA {
	if idx < 0 {
		return ColorOutline
	}
	return DomainPalette[idx%len(DomainPalette)]
}

func withAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}
