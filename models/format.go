package models

type Format string

const (
	FormatSingleElimination Format = "single_elimination"
	FormatDoubleElimination Format = "double_elimination"
	FormatRoundRobin        Format = "round_robin"
	FormatSwiss             Format = "swiss"
)

var formats = map[Format]struct{}{
	FormatSingleElimination: {},
	FormatDoubleElimination: {},
	FormatRoundRobin:        {},
	FormatSwiss:             {},
}

func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

// IsElimination reports whether matches feed winners (and losers) into downstream slots.
func (f Format) IsElimination() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}
