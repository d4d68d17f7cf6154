package imdb

// MIDI controller numbers used for the part params.
const (
	CtrlModulation = 1
	CtrlVolume     = 7
	CtrlPan        = 10
	CtrlSustain    = 64
)

// SustainValue converts the part sustain value into the hold pedal
// controller value. Any non-zero sustain holds the notes.
func SustainValue(v int) uint8 {
	if v != 0 {
		return 127
	}
	return 0
}
