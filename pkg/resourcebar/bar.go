// Package resourcebar derives the proportions of a resource bar comparing total, allocated and
// expected resources. Everything in here is pure.
package resourcebar

import (
	"fmt"
	"math"

	"github.com/dhis2-sre/im-dbaas/pkg/resource"
)

type Mode string

const (
	// ModeInsufficient renders a full bar in an error state. The expected segment is suppressed.
	ModeInsufficient Mode = "insufficient"
	// ModeRequired renders the allocated segment followed by the required (expected) segment.
	ModeRequired Mode = "required"
	// ModeDownsize renders the allocated segment with the portion that remains after the downsize.
	ModeDownsize Mode = "downsize"
)

type Bar struct {
	Mode                     Mode               `json:"mode"`
	AllocatedWidth           float64            `json:"allocatedWidth"`
	ExpectedWidth            float64            `json:"expectedWidth"`
	InsufficientWidth        float64            `json:"insufficientWidth"`
	ExpectedAllocatedWidth   float64            `json:"expectedAllocatedWidth"`
	ExpectedAllocated        *resource.Quantity `json:"expectedAllocated,omitempty"`
	IsDownsize               bool               `json:"isDownsize"`
	IsInsufficient           bool               `json:"isInsufficient"`
	AllocatedCaption         string             `json:"allocatedCaption,omitempty"`
	ExpectedCaption          string             `json:"expectedCaption,omitempty"`
	ExpectedAllocatedCaption string             `json:"expectedAllocatedCaption,omitempty"`
}

// Derive computes the bar for a single resource dimension. Any input may be nil.
func Derive(total, allocated, expected *resource.Quantity) Bar {
	var required *float64
	if allocated != nil && expected != nil {
		r := allocated.Original + expected.Original
		required = &r
	}

	bar := Bar{
		AllocatedWidth: widthOf(allocated, total),
		IsDownsize:     expected != nil && expected.Value < 0,
		IsInsufficient: required != nil && total != nil && *required > total.Original,
	}
	if required != nil && total != nil {
		bar.ExpectedWidth = WidthPercent(*required, total.Original)
	}

	switch {
	case bar.IsInsufficient:
		bar.Mode = ModeInsufficient
		bar.ExpectedWidth = 0
		bar.InsufficientWidth = 100
	case bar.IsDownsize:
		bar.Mode = ModeDownsize
		bar.ExpectedAllocatedWidth = ExpectedAllocatedWidth(*expected, allocated)
		bar.ExpectedAllocated = ExpectedAllocated(*expected, allocated)
	default:
		bar.Mode = ModeRequired
	}

	bar.AllocatedCaption = allocatedCaption(total, allocated, bar.AllocatedWidth)
	bar.ExpectedCaption = expectedCaption(bar, expected)
	if bar.ExpectedAllocated != nil {
		bar.ExpectedAllocatedCaption = fmt.Sprintf("Expected allocated: %s", bar.ExpectedAllocated)
	}

	return bar
}

// WidthPercent returns part as a percentage of whole rounded to one decimal. It's 0 whenever
// whole isn't positive.
func WidthPercent(part, whole float64) float64 {
	if whole <= 0 || math.IsNaN(whole) || math.IsNaN(part) {
		return 0
	}
	return math.Round(part*100/whole*10) / 10
}

func widthOf(part, whole *resource.Quantity) float64 {
	if part == nil || whole == nil {
		return 0
	}
	return WidthPercent(part.Original, whole.Original)
}

// ExpectedAllocatedWidth is the width of the allocated segment that remains after a downsize.
// A downsize larger than the allocation leaves nothing.
func ExpectedAllocatedWidth(expected resource.Quantity, allocated *resource.Quantity) float64 {
	if allocated == nil {
		return 0
	}
	magnitude := math.Abs(expected.Original)
	if magnitude > allocated.Original {
		return 0
	}
	return math.Round((100-WidthPercent(magnitude, allocated.Original))*10) / 10
}

// ExpectedAllocated is the allocation that would remain after applying a negative expected
// quantity. It's a zero quantity when the downsize exceeds the allocation and nil when the two
// can't be combined.
func ExpectedAllocated(expected resource.Quantity, allocated *resource.Quantity) *resource.Quantity {
	if allocated == nil {
		return nil
	}
	if math.Abs(expected.Original) > allocated.Original {
		zero := resource.Zero(*allocated)
		return &zero
	}

	q, ok := resource.Sum(expected, *allocated)
	if !ok {
		q, ok = resource.Add(expected, *allocated)
	}
	if !ok {
		return nil
	}
	q = resource.RoundDisplay(q)
	return &q
}

func allocatedCaption(total, allocated *resource.Quantity, width float64) string {
	if allocated == nil {
		return ""
	}
	if total == nil {
		return fmt.Sprintf("Allocated: %s", resource.RoundDisplay(*allocated))
	}
	return fmt.Sprintf("Allocated: %s (%s%%) / %s", resource.RoundDisplay(*allocated), formatWidth(width), resource.RoundDisplay(*total))
}

func expectedCaption(bar Bar, expected *resource.Quantity) string {
	switch bar.Mode {
	case ModeInsufficient:
		return "Insufficient resources"
	case ModeDownsize:
		return fmt.Sprintf("Released: %s", resource.RoundDisplay(negate(*expected)))
	case ModeRequired:
		if expected == nil {
			return ""
		}
		return fmt.Sprintf("Required: %s", resource.RoundDisplay(*expected))
	}
	return ""
}

func negate(q resource.Quantity) resource.Quantity {
	q.Value = -q.Value
	q.Original = -q.Original
	return q
}

func formatWidth(width float64) string {
	return fmt.Sprintf("%g", width)
}

// Bars holds one bar per resource dimension.
type Bars struct {
	CPU    Bar `json:"cpu"`
	Memory Bar `json:"memory"`
	Disk   Bar `json:"disk"`
}

// Triple derives the bars for cpu, memory and disk.
func Triple(total, allocated, expected resource.Resources) Bars {
	return Bars{
		CPU:    Derive(total.CPU, allocated.CPU, expected.CPU),
		Memory: Derive(total.Memory, allocated.Memory, expected.Memory),
		Disk:   Derive(total.Disk, allocated.Disk, expected.Disk),
	}
}
