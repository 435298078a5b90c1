package mot

import "gonum.org/v1/gonum/spatial/r2"

// Rectangle is an axis-aligned box in normalized coordinates.
// X and Y are the top-left corner.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// Center returns middle point of the rectangle
func (rect Rectangle) Center() Point {
	topLeft := r2.Vec{X: rect.X, Y: rect.Y}
	bottomRight := r2.Vec{X: rect.X + rect.Width, Y: rect.Y + rect.Height}
	return fromVec(r2.Scale(0.5, r2.Add(topLeft, bottomRight)))
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// Hull is closed polygon outline of a blob. Last point connects back to the first one.
type Hull []Point

// Clone returns deep copy of the hull. Nil stays nil.
func (hull Hull) Clone() Hull {
	if hull == nil {
		return nil
	}
	cp := make(Hull, len(hull))
	copy(cp, hull)
	return cp
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func fromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

func euclideanDistance(p1, p2 Point) float64 {
	return r2.Norm(r2.Sub(p1.vec(), p2.vec()))
}
