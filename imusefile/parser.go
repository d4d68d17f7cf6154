package imusefile

import (
	"fmt"
	"strings"

	"github.com/quasilyte/imuse/internal/imdb"
	"gopkg.in/yaml.v3"
)

type parser struct {
	data []byte

	// Bank holds the results of parsing.
	bank Bank

	soundIDs map[int]struct{}

	// line is the document line of the node being parsed.
	line int

	// These fields below are needed for better error reporting.
	stage         string
	stageIndex    int
	subStage      string
	subStageIndex int
}

type soundDoc struct {
	ID        int       `yaml:"id"`
	Name      string    `yaml:"name"`
	Group     string    `yaml:"group"`
	Volume    *int      `yaml:"volume"`
	Pan       *int      `yaml:"pan"`
	Detune    int       `yaml:"detune"`
	Transpose int       `yaml:"transpose"`
	Parts     yaml.Node `yaml:"parts"`
}

type partDoc struct {
	Disabled   bool `yaml:"disabled"`
	Program    int  `yaml:"program"`
	Priority   int  `yaml:"priority"`
	Modulation int  `yaml:"modulation"`
	Volume     *int `yaml:"volume"`
	Trim       *int `yaml:"trim"`
	Pan        *int `yaml:"pan"`
	Outputs    *int `yaml:"outputs"`
}

var (
	bankKeys  = []string{"groups", "sounds"}
	soundKeys = []string{"id", "name", "group", "volume", "pan", "detune", "transpose", "parts"}
	partKeys  = []string{"disabled", "program", "priority", "modulation", "volume", "trim", "pan", "outputs"}
)

func newParser(data []byte) *parser {
	return &parser{
		data:          data,
		soundIDs:      make(map[int]struct{}),
		stageIndex:    -1,
		subStageIndex: -1,
	}
}

func (p *parser) Parse() error {
	return p.parse()
}

func (p *parser) startStage(name string) {
	p.stage = name
	p.stageIndex = -1
	p.subStage = ""
	p.subStageIndex = -1
}

func (p *parser) startSubStage(name string) {
	p.subStage = name
	p.subStageIndex = -1
}

func (p *parser) formatStage() string {
	var b strings.Builder
	b.Grow(len(p.stage) + len(p.subStage) + 16)
	b.WriteString(p.stage)
	if p.stageIndex >= 0 {
		fmt.Fprintf(&b, "[%d]", p.stageIndex)
	}
	if p.subStage != "" {
		b.WriteByte('.')
		b.WriteString(p.subStage)
		if p.subStageIndex >= 0 {
			fmt.Fprintf(&b, "[%d]", p.subStageIndex)
		}
	}
	return b.String()
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	text := fmt.Sprintf(format, args...)
	tag := p.formatStage()
	if tag != "" {
		text = tag + ": " + text
	}
	return &ParseError{
		Message: text,
		Line:    p.line,
	}
}

func (p *parser) parse() (err error) {
	defer func() {
		rv := recover()
		if rv != nil {
			if panicErr, ok := rv.(*ParseError); ok {
				err = panicErr
			} else {
				panic(rv)
			}
		}
	}()

	p.parseBank()

	return err // See the deferred call above
}

func (p *parser) parseBank() {
	var doc yaml.Node
	if err := yaml.Unmarshal(p.data, &doc); err != nil {
		panic(p.errorf("%v", err))
	}
	if doc.Kind == 0 {
		// An empty document is an empty bank.
		return
	}
	root := doc.Content[0]
	p.line = root.Line
	if root.Kind != yaml.MappingNode {
		panic(p.errorf("expected a mapping at the top level"))
	}
	p.checkKeys(root, bankKeys)

	if groups := lookupKey(root, "groups"); groups != nil {
		p.startStage("groups")
		p.parseGroups(groups)
	}

	if sounds := lookupKey(root, "sounds"); sounds != nil {
		p.startStage("sounds")
		p.line = sounds.Line
		if sounds.Kind != yaml.SequenceNode {
			panic(p.errorf("expected a list"))
		}
		for i, n := range sounds.Content {
			p.stageIndex = i
			p.bank.Sounds = append(p.bank.Sounds, p.parseSound(n))
		}
	}
}

func (p *parser) parseGroups(n *yaml.Node) {
	p.line = n.Line
	if n.Kind != yaml.MappingNode {
		panic(p.errorf("expected a group name to volume mapping"))
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		v := n.Content[i+1]
		p.line = k.Line
		g, ok := imdb.GroupByName(k.Value)
		if !ok {
			panic(p.errorf("unknown group %q", k.Value))
		}
		var volume int
		if err := v.Decode(&volume); err != nil {
			panic(p.errorf("group %q: %v", k.Value, err))
		}
		if !imdb.PartVolumeRange.Contains(volume) {
			panic(p.errorf("group %q: volume %d is out of range", k.Value, volume))
		}
		p.bank.Groups = append(p.bank.Groups, GroupVolume{
			Name:   k.Value,
			Group:  g,
			Volume: volume,
		})
	}
}

func (p *parser) parseSound(n *yaml.Node) Sound {
	p.startSubStage("")
	p.line = n.Line
	if n.Kind != yaml.MappingNode {
		panic(p.errorf("expected a mapping"))
	}
	p.checkKeys(n, soundKeys)

	var doc soundDoc
	if err := n.Decode(&doc); err != nil {
		panic(p.errorf("%v", err))
	}

	if doc.ID <= 0 {
		panic(p.errorf("id must be positive, got %d", doc.ID))
	}
	if _, ok := p.soundIDs[doc.ID]; ok {
		panic(p.errorf("duplicated sound id %d", doc.ID))
	}
	p.soundIDs[doc.ID] = struct{}{}

	s := Sound{
		ID:        doc.ID,
		Name:      doc.Name,
		Group:     imdb.GroupMusic,
		Volume:    valueOr(doc.Volume, 127),
		Pan:       valueOr(doc.Pan, 64),
		Detune:    doc.Detune,
		Transpose: doc.Transpose,
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("sound%d", s.ID)
	}
	if doc.Group != "" {
		g, ok := imdb.GroupByName(doc.Group)
		if !ok || g == imdb.GroupMaster {
			panic(p.errorf("invalid group %q", doc.Group))
		}
		s.Group = g
	}

	p.checkRange("volume", s.Volume, imdb.PartVolumeRange)
	p.checkRange("pan", s.Pan, imdb.PartPanRange)
	detune, _ := imdb.ParamInfo(imdb.ParamDetune)
	p.checkRange("detune", s.Detune, detune)
	transpose, _ := imdb.ParamInfo(imdb.ParamTranspose)
	p.checkRange("transpose", s.Transpose, transpose)

	if doc.Parts.Kind != 0 {
		p.startSubStage("parts")
		p.line = doc.Parts.Line
		if doc.Parts.Kind != yaml.SequenceNode {
			panic(p.errorf("expected a list"))
		}
		if len(doc.Parts.Content) > 16 {
			panic(p.errorf("too many parts: %d", len(doc.Parts.Content)))
		}
		s.Parts = make([]Part, 0, len(doc.Parts.Content))
		for i, partNode := range doc.Parts.Content {
			p.subStageIndex = i
			s.Parts = append(s.Parts, p.parsePart(partNode))
		}
	}

	return s
}

func (p *parser) parsePart(n *yaml.Node) Part {
	p.line = n.Line
	if n.Kind != yaml.MappingNode {
		panic(p.errorf("expected a mapping"))
	}
	p.checkKeys(n, partKeys)

	var doc partDoc
	if err := n.Decode(&doc); err != nil {
		panic(p.errorf("%v", err))
	}

	part := Part{
		Disabled:       doc.Disabled,
		Program:        doc.Program,
		Priority:       doc.Priority,
		Modulation:     doc.Modulation,
		Volume:         valueOr(doc.Volume, 127),
		Trim:           valueOr(doc.Trim, 127),
		Pan:            valueOr(doc.Pan, 64),
		OutputChannels: valueOr(doc.Outputs, 1),
	}

	p.checkRange("program", part.Program, imdb.ProgramRange)
	p.checkRange("priority", part.Priority, imdb.PartPriorityRange)
	p.checkRange("modulation", part.Modulation, imdb.ModulationRange)
	p.checkRange("volume", part.Volume, imdb.PartVolumeRange)
	p.checkRange("trim", part.Trim, imdb.PartTrimRange)
	p.checkRange("pan", part.Pan, imdb.PartPanRange)
	if part.OutputChannels == 0 {
		panic(p.errorf("outputs can't be 0"))
	}
	p.checkRange("outputs", part.OutputChannels, imdb.OutChannelsRange)

	return part
}

func (p *parser) checkRange(what string, v int, r imdb.ParamRange) {
	if !r.Contains(v) {
		panic(p.errorf("%s %d is out of [%d, %d] range", what, v, r.Min, r.Max))
	}
}

func (p *parser) checkKeys(n *yaml.Node, allowed []string) {
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i]
		known := false
		for _, s := range allowed {
			if k.Value == s {
				known = true
				break
			}
		}
		if !known {
			p.line = k.Line
			panic(p.errorf("unexpected key %q", k.Value))
		}
	}
}
