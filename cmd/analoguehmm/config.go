package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"github.com/TuftsBCB/seq"

	"github.com/TuftsBCB/analogue/poremodel"
	"github.com/TuftsBCB/analogue/topology"
)

// analogueConfig is the JSON description of a base analogue, e.g.,
//
//	{"name": "BrdU", "concentration": 0.3, "emissions": "brdu.model"}
//
// Symbol and replaces default to "B" and "T". A relative emissions path is
// taken relative to the config file.
type analogueConfig struct {
	Name          string   `json:"name"`
	Symbol        string   `json:"symbol"`
	Replaces      string   `json:"replaces"`
	Concentration *float64 `json:"concentration"`
	Emissions     string   `json:"emissions"`
}

func loadAnalogue(path string) (*topology.Analogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg analogueConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("Error reading analogue config '%s': %s",
			path, err)
	}
	if cfg.Concentration == nil {
		return nil, fmt.Errorf("Analogue config '%s' has no concentration.",
			path)
	}

	a := topology.NewAnalogue(cfg.Name, *cfg.Concentration, nil)
	if cfg.Symbol != "" {
		if a.Symbol, err = residue("symbol", cfg.Symbol); err != nil {
			return nil, err
		}
	}
	if cfg.Replaces != "" {
		if a.Replaces, err = residue("replaces", cfg.Replaces); err != nil {
			return nil, err
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if cfg.Emissions != "" {
		emPath := cfg.Emissions
		if !filepath.IsAbs(emPath) {
			emPath = filepath.Join(filepath.Dir(path), emPath)
		}
		table, err := readPoreModel(emPath)
		if err != nil {
			return nil, err
		}
		if table.K() != topology.K {
			return nil, fmt.Errorf("Analogue pore model '%s' has %d-mers, "+
				"expected %d-mers.", emPath, table.K(), topology.K)
		}
		a.Emissions = table
	}
	return a, nil
}

func residue(field, s string) (seq.Residue, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("Analogue %s must be a single residue, "+
			"got '%s'.", field, s)
	}
	return seq.Residue(unicode.ToUpper(rune(s[0]))), nil
}

func readPoreModel(path string) (*poremodel.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := poremodel.Read(f)
	if err != nil {
		return nil, fmt.Errorf("Error reading pore model '%s': %s", path, err)
	}
	return table, nil
}
