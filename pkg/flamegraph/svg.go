package flamegraph

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/danpilch/calltrace/pkg/record"
)

// ErrNoSamples is returned when there is nothing to draw.
var ErrNoSamples = errors.New("no call time to render")

// SVGOptions configures the flame graph SVG output.
type SVGOptions struct {
	Title       string
	Width       int
	Height      int
	ColorScheme string // "hot", "cold"
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Title:       "Slow Calls",
		Width:       1200,
		ColorScheme: "hot",
	}
}

// node is a call path in the flame graph tree, weighted by inclusive time.
type node struct {
	name     string
	us       uint64
	children map[string]*node
}

func newNode(name string) *node {
	return &node{
		name:     name,
		children: make(map[string]*node),
	}
}

func buildTree(stacks map[string]uint64) *node {
	root := newNode("all")
	for stack, us := range stacks {
		if us == 0 {
			continue
		}
		n := root
		for _, name := range strings.Split(stack, ";") {
			child, ok := n.children[name]
			if !ok {
				child = newNode(name)
				n.children[name] = child
			}
			child.us += us
			n = child
		}
		root.us += us
	}
	return root
}

// GenerateSVG renders records as an SVG flame graph weighted by duration.
func GenerateSVG(records []record.Record, svg io.Writer, opts SVGOptions) error {
	var collapsed bytes.Buffer
	Collapse(records, &collapsed)
	return GenerateSVGFromCollapsed(&collapsed, svg, opts)
}

// GenerateSVGFromCollapsed renders folded stacks as an SVG flame graph.
func GenerateSVGFromCollapsed(collapsed io.Reader, svg io.Writer, opts SVGOptions) error {
	if opts.Width == 0 {
		opts.Width = 1200
	}

	stacks, err := ParseCollapsed(collapsed)
	if err != nil {
		return err
	}
	root := buildTree(stacks)
	if root.us == 0 {
		return ErrNoSamples
	}

	frameHeight := 16
	fontSize := 12
	chartHeight := (maxDepth(root, 0) + 2) * frameHeight
	headerHeight := 40
	totalHeight := chartHeight + headerHeight + 20

	if opts.Height == 0 {
		opts.Height = totalHeight
	}

	fmt.Fprintf(svg, `<?xml version="1.0" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg1.1.dtd">
<svg version="1.1" width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<style>
  .func:hover { stroke:black; stroke-width:0.5; cursor:pointer; }
  text { font-family: monospace; font-size: %dpx; }
</style>
<rect x="0" y="0" width="%d" height="%d" fill="white"/>
<text x="%d" y="20" text-anchor="middle" style="font-size:16px; font-weight:bold;">%s</text>
<text x="%d" y="35" text-anchor="middle" style="font-size:12px; fill:#666;">(%s recorded)</text>
`,
		opts.Width, opts.Height, fontSize,
		opts.Width, opts.Height,
		opts.Width/2, html.EscapeString(opts.Title),
		opts.Width/2, time.Duration(root.us)*time.Microsecond)

	margin := 10
	r := renderer{
		w:           svg,
		baseY:       opts.Height - 20,
		frameHeight: frameHeight,
		total:       root.us,
		scheme:      opts.ColorScheme,
	}
	r.render(root, margin, opts.Width-2*margin, 0)

	fmt.Fprintln(svg, "</svg>")
	return nil
}

type renderer struct {
	w           io.Writer
	baseY       int
	frameHeight int
	total       uint64
	scheme      string
}

func (r *renderer) render(n *node, x, width, depth int) {
	if width < 1 || n.us == 0 {
		return
	}

	y := r.baseY - (depth * r.frameHeight)
	red, green, blue := frameColor(depth, r.scheme)

	fmt.Fprintf(r.w, `<g class="func">
<rect x="%d" y="%d" width="%d" height="%d" fill="rgb(%d,%d,%d)" rx="1"/>
`, x, y-r.frameHeight, width, r.frameHeight-1, red, green, blue)

	if width > 40 {
		label := n.name
		maxChars := (width - 4) / 7 // approximate char width
		if len(label) > maxChars {
			if maxChars > 3 {
				label = label[:maxChars-2] + ".."
			} else {
				label = ""
			}
		}
		if label != "" {
			fmt.Fprintf(r.w, `<text x="%d" y="%d" fill="black">%s</text>
`, x+2, y-4, html.EscapeString(label))
		}
	}

	pct := float64(n.us) / float64(r.total) * 100
	fmt.Fprintf(r.w, `<title>%s (%s, %.1f%%)</title>
</g>
`, html.EscapeString(n.name), time.Duration(n.us)*time.Microsecond, pct)

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	childX := x
	for _, name := range names {
		child := n.children[name]
		childWidth := int(float64(width) * float64(child.us) / float64(n.us))
		if childWidth < 1 {
			childWidth = 1
		}
		r.render(child, childX, childWidth, depth+1)
		childX += childWidth
	}
}

func frameColor(depth int, scheme string) (int, int, int) {
	switch scheme {
	case "cold":
		g := 50 + (depth*30)%150
		b := 150 + (depth*20)%100
		return 30, g, b
	default: // "hot"
		r := 200 + (depth*15)%55
		g := 50 + (depth*40)%150
		return r, g, 30
	}
}

func maxDepth(n *node, depth int) int {
	max := depth
	for _, child := range n.children {
		if d := maxDepth(child, depth+1); d > max {
			max = d
		}
	}
	return max
}
