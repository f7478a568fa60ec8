package resource

// Resources holds one quantity per resource dimension. A nil quantity is unknown.
type Resources struct {
	CPU    *Quantity `json:"cpu,omitempty"`
	Memory *Quantity `json:"memory,omitempty"`
	Disk   *Quantity `json:"disk,omitempty"`
}

// Allocated is a snapshot of a Kubernetes cluster's capacity versus consumption.
type Allocated struct {
	Total     Resources `json:"total"`
	Allocated Resources `json:"allocated"`
}

// Expected is the projected consumption of a prospective cluster configuration.
type Expected struct {
	Expected Resources `json:"expected"`
}

// Raw holds unscaled resources as reported by the control plane or Kubernetes.
type Raw struct {
	CPUMilli    float64
	MemoryBytes float64
	DiskBytes   float64
}

// Resources formats raw values into display quantities.
func (r Raw) Resources() Resources {
	cpu := CPU(r.CPUMilli)
	memory := FormatBytes(r.MemoryBytes, displayDecimals)
	disk := FormatBytes(r.DiskBytes, displayDecimals)
	return Resources{CPU: &cpu, Memory: &memory, Disk: &disk}
}

// NewAllocated builds a snapshot from raw capacity and consumption.
func NewAllocated(total, allocated Raw) Allocated {
	return Allocated{
		Total:     total.Resources(),
		Allocated: allocated.Resources(),
	}
}

// Delta returns the per dimension difference a - b. Dimensions missing on either side, or with
// mismatching unit families, are left nil.
func Delta(a, b Resources) Resources {
	return Resources{
		CPU:    subtract(a.CPU, b.CPU),
		Memory: subtract(a.Memory, b.Memory),
		Disk:   subtract(a.Disk, b.Disk),
	}
}

func subtract(a, b *Quantity) *Quantity {
	if a == nil || b == nil {
		return nil
	}
	q, ok := Subtract(*a, *b)
	if !ok {
		return nil
	}
	return &q
}
