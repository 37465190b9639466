// Package overlay keeps the HTML marker layer of the map.
//
// The container owns a small DOM tree. Marker presence is read back from
// that tree, so counts always reflect what a browser patched from HTML()
// would show.
package overlay

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/joeblew999/plat-intel/internal/errors"
)

// Marker classes.
const (
	ClassProtest    = "protest-marker"
	ClassDatacenter = "datacenter-marker"
	ClassTechEvent  = "tech-event-marker"
	ClassTechHQ     = "tech-hq-marker"
	ClassPopup      = "map-popup"
)

// Classes lists the marker classes in reporting order.
var Classes = []string{ClassProtest, ClassDatacenter, ClassTechEvent, ClassTechHQ}

const attrMarkerID = "data-marker-id"

// Marker is one overlay element.
type Marker struct {
	ID      string
	Class   string
	Lat     float64
	Lon     float64
	Title   string
	Summary string
	// Count is the number of entities behind the marker. Above 1 a badge is
	// shown.
	Count int
}

// Popup is the content shown after clicking a marker.
type Popup struct {
	MarkerID string   `json:"markerId"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	Count    int      `json:"count"`
	Items    []string `json:"items,omitempty"`
}

// Container is the overlay root element.
type Container struct {
	mu   sync.RWMutex
	id   string
	root *html.Node
}

// NewContainer creates an empty container element with the given DOM id.
func NewContainer(id string) (*Container, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &errors.ValidationError{Field: "container", Message: "id is required"}
	}
	root := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "class", Val: "map-overlay"},
		},
	}
	return &Container{id: id, root: root}, nil
}

// ID returns the DOM id.
func (c *Container) ID() string { return c.id }

// Sync makes the marker elements match markers in order. Existing elements
// are reused by marker id, missing ones created and stale ones removed. An
// open popup survives only if its marker is still present.
func (c *Container) Sync(markers []Marker, vp Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := map[string]*html.Node{}
	var popup *html.Node
	for n := c.root.FirstChild; n != nil; {
		next := n.NextSibling
		c.root.RemoveChild(n)
		if hasClass(n, ClassPopup) {
			popup = n
		} else if id := attr(n, attrMarkerID); id != "" {
			existing[id] = n
		}
		n = next
	}

	present := make(map[string]bool, len(markers))
	for _, m := range markers {
		if present[m.ID] {
			continue
		}
		present[m.ID] = true
		n, ok := existing[m.ID]
		if !ok {
			n = &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
		}
		writeMarker(n, m, vp)
		c.root.AppendChild(n)
	}

	if popup != nil && present[attr(popup, attrMarkerID)] {
		c.root.AppendChild(popup)
	}
}

// ShowPopup replaces any open popup.
func (c *Container) ShowPopup(p Popup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removePopup()
	n := element(atom.Div, ClassPopup)
	setAttr(n, attrMarkerID, p.MarkerID)

	title := element(atom.H3, "popup-title")
	title.AppendChild(text(p.Title))
	n.AppendChild(title)

	if p.Summary != "" {
		summary := element(atom.P, "popup-summary")
		summary.AppendChild(text(p.Summary))
		n.AppendChild(summary)
	}
	if len(p.Items) > 0 {
		list := element(atom.Ul, "popup-items")
		for _, item := range p.Items {
			li := element(atom.Li, "")
			li.AppendChild(text(item))
			list.AppendChild(li)
		}
		n.AppendChild(list)
	}
	c.root.AppendChild(n)
}

// Has reports whether a marker element with the given id is present.
func (c *Container) Has(markerID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for n := c.root.FirstChild; n != nil; n = n.NextSibling {
		if !hasClass(n, ClassPopup) && attr(n, attrMarkerID) == markerID {
			return true
		}
	}
	return false
}

// ClosePopup removes the open popup, if any.
func (c *Container) ClosePopup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removePopup()
}

func (c *Container) removePopup() {
	for n := c.root.FirstChild; n != nil; n = n.NextSibling {
		if hasClass(n, ClassPopup) {
			c.root.RemoveChild(n)
			return
		}
	}
}

// Reset removes every child element.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.root.FirstChild != nil {
		c.root.RemoveChild(c.root.FirstChild)
	}
}

// Count returns the number of elements carrying class.
func (c *Container) Count(class string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	walk(c.root, func(el *html.Node) {
		if el != c.root && hasClass(el, class) {
			n++
		}
	})
	return n
}

// Counts returns Count for every marker class.
func (c *Container) Counts() map[string]int {
	out := make(map[string]int, len(Classes))
	for _, class := range Classes {
		out[class] = c.Count(class)
	}
	return out
}

// Text returns the text content of every element carrying class.
func (c *Container) Text(class string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	walk(c.root, func(el *html.Node) {
		if hasClass(el, class) {
			out = append(out, textContent(el))
		}
	})
	return out
}

// MarkerIDs returns the ids of the elements carrying class, in DOM order.
func (c *Container) MarkerIDs(class string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for n := c.root.FirstChild; n != nil; n = n.NextSibling {
		if hasClass(n, class) {
			out = append(out, attr(n, attrMarkerID))
		}
	}
	return out
}

// HTML serializes the container element.
func (c *Container) HTML() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, c.root); err != nil {
		return ""
	}
	return buf.String()
}

func writeMarker(n *html.Node, m Marker, vp Viewport) {
	x, y := vp.Pixel(m.Lat, m.Lon)
	class := m.Class
	if m.Count > 1 {
		class += " marker-cluster"
	}
	n.Attr = n.Attr[:0]
	setAttr(n, "class", class)
	setAttr(n, attrMarkerID, m.ID)
	setAttr(n, "data-lat", strconv.FormatFloat(m.Lat, 'f', 5, 64))
	setAttr(n, "data-lon", strconv.FormatFloat(m.Lon, 'f', 5, 64))
	setAttr(n, "style", fmt.Sprintf("left:%.1fpx;top:%.1fpx", x, y))
	if m.Title != "" {
		setAttr(n, "title", m.Title)
	}

	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	if m.Count > 1 {
		badge := element(atom.Span, "marker-badge")
		badge.AppendChild(text(strconv.Itoa(m.Count)))
		n.AppendChild(badge)
	}
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		setAttr(n, "class", class)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}
