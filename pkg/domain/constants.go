package domain

// Direction selects a conversion.
type Direction string

const (
	MealyToMoore Direction = "mealy-to-moore"
	MooreToMealy Direction = "moore-to-mealy"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case MealyToMoore, MooreToMealy:
		return d, nil
	default:
		return "", Errorf(KindUnsupportedDirection, StageReceived,
			"unsupported direction %q (want %q or %q)", s, MealyToMoore, MooreToMealy)
	}
}

// Source returns the machine kind a direction reads.
func (d Direction) Source() MachineKind {
	if d == MooreToMealy {
		return MachineMoore
	}
	return MachineMealy
}

// MachineKind names one of the two machine models.
type MachineKind string

const (
	MachineMealy MachineKind = "mealy"
	MachineMoore MachineKind = "moore"
)

// ParseMachineKind validates a machine kind string.
func ParseMachineKind(s string) (MachineKind, error) {
	switch k := MachineKind(s); k {
	case MachineMealy, MachineMoore:
		return k, nil
	default:
		return "", Errorf(KindUnsupportedDirection, StageReceived,
			"unsupported machine kind %q (want %q or %q)", s, MachineMealy, MachineMoore)
	}
}
