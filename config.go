package finitemutsel

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//Config is the run file of a chain. Command-line flags override the values read from it.
type Config struct {
	Name           string  `yaml:"name" validate:"required"`
	Data           string  `yaml:"data" validate:"required"`
	Tree           string  `yaml:"tree"`
	Alphabet       string  `yaml:"alphabet" validate:"required,min=2"`
	CodeType       string  `yaml:"codetype"`
	NCat           int     `yaml:"ncat" validate:"gte=-1,ne=0"`
	KMax           int     `yaml:"kmax" validate:"gte=0"`
	FixNcomp       bool    `yaml:"fixncomp"`
	EmpMix         bool    `yaml:"empmix"`
	MixType        string  `yaml:"mixtype" validate:"required_if=EmpMix true"`
	CatalogDir     string  `yaml:"catalogdir"`
	FixTopo        bool    `yaml:"fixtopo"`
	FixBL          bool    `yaml:"fixbl"`
	NSPR           int     `yaml:"nspr" validate:"gte=0"`
	NNNI           int     `yaml:"nnni" validate:"gte=0"`
	DC             bool    `yaml:"dc"`
	OmegaPrior     int     `yaml:"omegaprior" validate:"gte=0"`
	DirWeightPrior int     `yaml:"dirweightprior" validate:"gte=0"`
	StatEps        float64 `yaml:"stateps" validate:"gt=0,lt=1"`
	MinTotWeight   float64 `yaml:"mintotweight" validate:"gt=0"`
	NProcs         int     `yaml:"nprocs" validate:"gte=2"`
	Seed           uint64  `yaml:"seed"`
	Every          int     `yaml:"every" validate:"gte=1"`
	Until          int     `yaml:"until" validate:"gte=-1"`
	Tuning         float64 `yaml:"tuning" validate:"gt=0"`
	OutDir         string  `yaml:"outdir"`
	LogLevel       string  `yaml:"loglevel" validate:"oneof=debug info warn error"`
	Development    bool    `yaml:"development"`
	MetricsAddr    string  `yaml:"metricsaddr"`
	TraceDB        string  `yaml:"tracedb"`
}

//DefaultConfig returns the settings of a plain CAT-like run on amino acids
func DefaultConfig() Config {
	return Config{
		Alphabet:     AminoAcids,
		CodeType:     "Universal",
		NCat:         -1,
		NSPR:         10,
		StatEps:      DefaultStatEps,
		MinTotWeight: DefaultMinTotWeight,
		NProcs:       2,
		Seed:         1,
		Every:        1,
		Until:        -1,
		Tuning:       1,
		OutDir:       ".",
		LogLevel:     "info",
	}
}

var validate = validator.New()

//Validate checks every field constraint
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]error, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Errorf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return configErr("validate config", errors.Join(msgs...))
		}
		return configErr("validate config", err)
	}
	return nil
}

//LoadConfig reads a YAML run file on top of the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, configErr("load config", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, configErr("load config "+path, err)
	}
	return cfg, nil
}

//Header returns the checkpoint header matching this configuration
func (c Config) Header(tree string) Header {
	h := DefaultHeader()
	h.DataFile = c.Data
	h.CodeType = c.CodeType
	h.NCat = c.NCat
	h.FixNcomp = c.FixNcomp
	h.EmpMix = c.EmpMix
	h.MixType = c.MixType
	h.FixTopo = c.FixTopo
	h.FixBL = c.FixBL
	h.NSPR = c.NSPR
	h.NNNI = c.NNNI
	h.OmegaPrior = c.OmegaPrior
	h.DirWeightPrior = c.DirWeightPrior
	h.DC = c.DC
	h.Tree = tree
	return h
}
