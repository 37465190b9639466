// Package reference holds the static reference layers (cables, pipelines,
// bases, datacenters and so on) that ship with the binary.
package reference

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var embedded []byte

// Path is an ordered list of [lon, lat] pairs.
type Path [][2]float64

// Cable is a submarine cable route.
type Cable struct {
	ID     string   `yaml:"id" json:"id"`
	Name   string   `yaml:"name" json:"name"`
	Owners []string `yaml:"owners,omitempty" json:"owners,omitempty"`
	Path   Path     `yaml:"path" json:"path"`
}

// Pipeline is an oil or gas pipeline route.
type Pipeline struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
	Path Path   `yaml:"path" json:"path"`
}

// ConflictZone is an area of active conflict. Polygon is a closed ring.
type ConflictZone struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Intensity string `yaml:"intensity" json:"intensity"`
	Polygon   Path   `yaml:"polygon" json:"polygon"`
}

// Site is a point of interest in one of the static point layers.
type Site struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lon      float64 `yaml:"lon" json:"lon"`
	Country  string  `yaml:"country,omitempty" json:"country,omitempty"`
	Operator string  `yaml:"operator,omitempty" json:"operator,omitempty"`
	Status   string  `yaml:"status,omitempty" json:"status,omitempty"`
}

// Coords implements entity.Locatable.
func (s Site) Coords() (float64, float64) { return s.Lat, s.Lon }

// Sites groups the point layers.
type Sites struct {
	Bases           []Site `yaml:"bases"`
	Nuclear         []Site `yaml:"nuclear"`
	Irradiators     []Site `yaml:"irradiators"`
	Spaceports      []Site `yaml:"spaceports"`
	Hotspots        []Site `yaml:"hotspots"`
	Datacenters     []Site `yaml:"datacenters"`
	Ports           []Site `yaml:"ports"`
	Waterways       []Site `yaml:"waterways"`
	EconomicCenters []Site `yaml:"economicCenters"`
	Minerals        []Site `yaml:"minerals"`
	AptGroups       []Site `yaml:"aptGroups"`
	StartupHubs     []Site `yaml:"startupHubs"`
	Accelerators    []Site `yaml:"accelerators"`
	CloudRegions    []Site `yaml:"cloudRegions"`
	TechHQs         []Site `yaml:"techHQs"`
}

// Dataset is the full static reference set.
type Dataset struct {
	Cables        []Cable        `yaml:"cables"`
	Pipelines     []Pipeline     `yaml:"pipelines"`
	ConflictZones []ConflictZone `yaml:"conflictZones"`
	Sites         Sites          `yaml:"sites"`
}

// Parse decodes a dataset from YAML.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse reference data: %w", err)
	}
	return &ds, nil
}

var (
	once     sync.Once
	instance *Dataset
	loadErr  error
)

// Default returns the embedded dataset, parsed once.
func Default() (*Dataset, error) {
	once.Do(func() {
		instance, loadErr = Parse(embedded)
	})
	return instance, loadErr
}

// CableByID returns the cable with the given id.
func (d *Dataset) CableByID(id string) (Cable, bool) {
	for _, c := range d.Cables {
		if c.ID == id {
			return c, true
		}
	}
	return Cable{}, false
}
