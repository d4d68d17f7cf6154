package imusefile

import (
	"io"

	"github.com/pkg/errors"
)

// Bank is a parsed sound bank document.
//
// A bank describes the sounds that can be started as cues
// and the initial group volumes. The sound sequence data
// itself is not a part of the bank.
type Bank struct {
	// Groups are listed in the document order.
	Groups []GroupVolume

	Sounds []Sound
}

type GroupVolume struct {
	// Name is a group name as written in the document.
	Name string

	Group  int
	Volume int
}

type Sound struct {
	ID   int
	Name string

	// Group is a resolved group index.
	// The default group is music.
	Group int

	// Volume defaults to 127, Pan defaults to 64.
	Volume    int
	Pan       int
	Detune    int
	Transpose int

	Parts []Part
}

type Part struct {
	Disabled bool

	Program    int
	Priority   int
	Modulation int

	// Volume and Trim default to 127, Pan defaults to 64.
	Volume int
	Trim   int
	Pan    int

	// OutputChannels defaults to 1.
	OutputChannels int
}

// Parse reads a YAML bank document.
//
// A non-nil error is usually a *ParseError object.
func Parse(r io.Reader) (*Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read data")
	}
	p := newParser(data)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return &p.bank, nil
}
