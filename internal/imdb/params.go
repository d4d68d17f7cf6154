package imdb

type ParamRange struct {
	Min int
	Max int
}

func (r ParamRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Param tags mirror the public imuse.Param enumeration.
const (
	ParamNone = iota
	ParamPriority
	ParamVolume
	ParamPan
	ParamDetune
	ParamTranspose
	ParamGroup
	ParamMailbox
	ParamMarker
	NumParams
)

var paramRanges = [NumParams]ParamRange{
	ParamPriority:  {0, 127},
	ParamVolume:    {0, 127},
	ParamPan:       {0, 127},
	ParamDetune:    {-9216, 9216},
	ParamTranspose: {-12, 12},
	ParamGroup:     {0, NumGroups - 1},
	ParamMailbox:   {-32768, 32767},
	ParamMarker:    {0, 127},
}

// ParamInfo returns a valid range for the param.
// The ok result is false for unknown params.
func ParamInfo(p int) (r ParamRange, ok bool) {
	if p <= ParamNone || p >= NumParams {
		return ParamRange{}, false
	}
	return paramRanges[p], true
}

// Part-level ranges.
var (
	PartPriorityRange      = ParamRange{-128, 127}
	PartVolumeRange        = ParamRange{0, 127}
	PartTrimRange          = ParamRange{0, 127}
	PartPanRange           = ParamRange{0, 127}
	ProgramRange           = ParamRange{0, 127}
	ModulationRange        = ParamRange{0, 127}
	SustainRange           = ParamRange{0, 127}
	VelocityRange          = ParamRange{1, 127}
	PitchBendRange         = ParamRange{-8192, 8191}
	OutChannelsRange       = ParamRange{0, 2}
	NoteRange              = ParamRange{0, 127}
	EffectivePriorityRange = ParamRange{0, 255}
)
