// Package resource models measured cluster resources (CPU, memory and disk) and the unit aware
// arithmetic used to compare them.
package resource

import (
	"math"

	"github.com/dustin/go-humanize"
)

type Unit string

const (
	Bytes Unit = "BYTES"
	KB    Unit = "KB"
	MB    Unit = "MB"
	GB    Unit = "GB"
	TB    Unit = "TB"
	PB    Unit = "PB"
	EB    Unit = "EB"

	// Milli is used for CPU. The value is expressed in cores while the original is in milli-cores.
	Milli Unit = "CPU"
)

// byteUnits is ordered by magnitude, each unit being 1000 times the previous one.
var byteUnits = []Unit{Bytes, KB, MB, GB, TB, PB, EB}

type Family int

const (
	FamilyUnknown Family = iota
	FamilyBytes
	FamilyCPU
)

func (u Unit) Family() Family {
	switch u {
	case Bytes, KB, MB, GB, TB, PB, EB:
		return FamilyBytes
	case Milli:
		return FamilyCPU
	}
	return FamilyUnknown
}

// Quantity is a measured resource. Value is display scaled, Original holds raw bytes or raw
// CPU milli-cores.
type Quantity struct {
	Value    float64 `json:"value"`
	Units    Unit    `json:"units"`
	Original float64 `json:"original"`
}

func (q Quantity) String() string {
	return humanize.FtoaWithDigits(q.Value, 2) + " " + string(q.Units)
}

const displayDecimals = 2

// FormatBytes picks the largest unit from BYTES to EB (base 1000) for which raw/1000^i >= 1 and
// rounds the value to decimals. Zero is reported as 0 BYTES and negative values keep their sign.
func FormatBytes(raw float64, decimals int) Quantity {
	if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Quantity{Value: 0, Units: Bytes, Original: 0}
	}

	magnitude := math.Abs(raw)
	i := int(math.Floor(math.Log(magnitude) / math.Log(1000)))
	// log ratios of exact powers of 1000 can land an ulp below the integer
	if i+1 < len(byteUnits) && magnitude/math.Pow(1000, float64(i+1)) >= 1 {
		i++
	}
	i = max(0, min(i, len(byteUnits)-1))

	return Quantity{
		Value:    round(raw/math.Pow(1000, float64(i)), decimals),
		Units:    byteUnits[i],
		Original: raw,
	}
}

// CPU creates a quantity from milli-cores.
func CPU(milli float64) Quantity {
	return Quantity{
		Value:    round(milli/1000, displayDecimals),
		Units:    Milli,
		Original: milli,
	}
}

// Difference subtracts b from a. It's only defined for quantities of the same unit; ok is false
// otherwise.
func Difference(a, b Quantity) (Quantity, bool) {
	if a.Units != b.Units {
		return Quantity{}, false
	}

	return Quantity{
		Value:    a.Value - b.Value,
		Units:    a.Units,
		Original: a.Original - b.Original,
	}, true
}

// Sum adds a and b. It's only defined for quantities of the same unit; ok is false otherwise.
func Sum(a, b Quantity) (Quantity, bool) {
	if a.Units != b.Units {
		return Quantity{}, false
	}

	return Quantity{
		Value:    a.Value + b.Value,
		Units:    a.Units,
		Original: a.Original + b.Original,
	}, true
}

// Subtract is like Difference but accepts any two units of the same family. The result is
// formatted from the originals.
func Subtract(a, b Quantity) (Quantity, bool) {
	return combine(a, b, a.Original-b.Original)
}

// Add is like Sum but accepts any two units of the same family. The result is formatted from the
// originals.
func Add(a, b Quantity) (Quantity, bool) {
	return combine(a, b, a.Original+b.Original)
}

func combine(a, b Quantity, original float64) (Quantity, bool) {
	family := a.Units.Family()
	if family == FamilyUnknown || family != b.Units.Family() {
		return Quantity{}, false
	}

	if family == FamilyCPU {
		return CPU(original), true
	}
	return FormatBytes(original, displayDecimals), true
}

// RoundDisplay rounds the value to two decimals, half up. The epsilon keeps values like 0.075
// from rounding down due to their binary representation.
func RoundDisplay(q Quantity) Quantity {
	q.Value = round(q.Value, displayDecimals)
	return q
}

func round(value float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(value*p+math.Copysign(epsilon(value*p), value)) / p
}

// epsilon scales the machine epsilon to the magnitude of v.
func epsilon(v float64) float64 {
	return math.Max(math.Abs(v), 1) * 1e-12
}

// Zero returns an empty quantity in the unit family of q.
func Zero(q Quantity) Quantity {
	if q.Units.Family() == FamilyCPU {
		return CPU(0)
	}
	return Quantity{Value: 0, Units: Bytes, Original: 0}
}
