package template

import (
	"fmt"
	"strings"

	"moldura/pkg/geometry"

	"github.com/google/uuid"
)

// AddTextPoint appends a new point and returns it with its assigned id.
// Unset fields take the editor defaults.
func (c *Client) AddTextPoint(p TextPoint) (TextPoint, error) {
	if strings.TrimSpace(p.Name) == "" {
		return TextPoint{}, fmt.Errorf("%w: name is required", ErrInvalidPoint)
	}
	p.ID = uuid.NewString()
	if p.FontSize == 0 {
		p.FontSize = DefaultFontSize
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	p.Normalize()
	c.TextPoints = append(c.TextPoints, p)
	return p, nil
}

// TextPoint returns the point with the given id.
func (c *Client) TextPoint(id string) (TextPoint, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.TextPoints[i], true
	}
	return TextPoint{}, false
}

// UpdateTextPoint applies fn to the point with the given id and normalises
// the result. The id cannot be changed.
func (c *Client) UpdateTextPoint(id string, fn func(*TextPoint)) (TextPoint, error) {
	i := c.indexOf(id)
	if i < 0 {
		return TextPoint{}, fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	p := c.TextPoints[i]
	fn(&p)
	p.ID = id
	p.Normalize()
	c.TextPoints[i] = p
	return p, nil
}

// MoveTextPoint sets a point's anchor, clamped into [0,100].
func (c *Client) MoveTextPoint(id string, x, y float64) (TextPoint, error) {
	return c.UpdateTextPoint(id, func(p *TextPoint) {
		p.X, p.Y = x, y
	})
}

// DeleteTextPoint removes the point with the given id.
func (c *Client) DeleteTextPoint(id string) error {
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	c.TextPoints = append(c.TextPoints[:i], c.TextPoints[i+1:]...)
	return nil
}

// pointNamespace seeds the ids derived for points saved without one.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("moldura:text-point"))

// PointID derives the id of a point stored without one from its position and
// name, so reloading the same template yields the same ids.
func PointID(index int, name string) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%d/%s", index, name))).String()
}

// Normalize normalises every point and assigns ids to points missing one.
func (c *Client) Normalize() {
	for i := range c.TextPoints {
		if c.TextPoints[i].ID == "" {
			c.TextPoints[i].ID = PointID(i, c.TextPoints[i].Name)
		}
		c.TextPoints[i].Normalize()
	}
}

func (c *Client) indexOf(id string) int {
	for i, p := range c.TextPoints {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// PercentAt converts a position inside a displayed surface into clamped
// percentages of that surface, as used for TextPoint anchors.
func PercentAt(pos geometry.Point2D, display geometry.Size) (x, y float64) {
	if display.Empty() {
		return 0, 0
	}
	return clampPercent(pos.X / display.Width * 100), clampPercent(pos.Y / display.Height * 100)
}
