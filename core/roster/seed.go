package roster

import (
	_ "embed"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/siabdul/core"
)

const seedSection = "seed"

//go:embed seed/default.yaml
var defaultSeed []byte

// Seed is the YAML roster document used to bootstrap a school.
type Seed struct {
	Classes  []string     `yaml:"classes"`
	Students []NewStudent `yaml:"students"`
}

// ParseSeed decodes a roster seed document.
func ParseSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return Seed{}, errors.Wrap(err, "decoding roster seed")
	}
	return seed, nil
}

// LoadSeed reads the seed at `path`, or the built-in demo roster when `path` is empty.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, errors.Wrap(err, "opening roster seed")
	}
	defer f.Close()
	return ParseSeed(f)
}

func DefaultSeed() (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(defaultSeed, &seed); err != nil {
		return Seed{}, errors.Wrap(err, "decoding default seed")
	}
	return seed, nil
}

// ApplySeed creates the seed's classes and students. Existing classes are kept,
// invalid or duplicate students are skipped and reported.
func (svc *Service) ApplySeed(seed Seed) (core.ImportReport, error) {
	var report core.ImportReport
	for i, class := range seed.Classes {
		err := svc.AddClass(class)
		if err == nil {
			continue
		}
		if e, ok := errors.Cause(err).(*core.ValidationError); ok && e.Err == ErrClassExists {
			continue
		}
		report.Reject(seedSection, i+1, describe(err))
	}

	for i, ns := range seed.Students {
		if err := ns.Validate(svc); err != nil {
			report.Reject(seedSection, i+1, describe(err))
			continue
		}
		if ns.Avatar == "" {
			ns.Avatar = DefaultAvatar(ns.Name)
		}
		if _, err := svc.Create(ns); err != nil {
			report.Reject(seedSection, i+1, describe(err))
			continue
		}
		report.Applied++
	}
	return report, nil
}
