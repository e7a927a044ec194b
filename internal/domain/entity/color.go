package entity

import "fmt"

type Color struct {
	R, G, B uint8
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// StatusColor maps a status to its chart colour.
func StatusColor(status JobStatus) Color {
	switch status {
	case JobStatusApplied:
		return Color{65, 105, 225}
	case JobStatusInterview:
		return Color{0, 255, 255}
	case JobStatusOffer:
		return Color{0, 255, 0}
	case JobStatusRejected:
		return Color{255, 0, 0}
	case JobStatusGhosted:
		return Color{128, 128, 128}
	}
	return Color{0, 0, 0}
}
