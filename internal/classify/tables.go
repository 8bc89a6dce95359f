package classify

import (
	"fmt"
	"os"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultTables returns the built-in threshold configuration.
//
// Wind speed (km/h) selects the hazard type as well as the tier: rows below
// 118 km/h classify as storm, rows at or above as cyclone (118 km/h is the
// conventional sustained-wind boundary between severe storm and cyclone).
// Whether the cyclone boundary should differ per basin is an open domain
// question; a single boundary is kept here.
func DefaultTables() Tables {
	return Tables{
		domain.CategorySeismic: {
			domain.KeyMagnitude: {
				{Boundary: 4.0, Severity: domain.SeverityLow, HazardType: domain.HazardEarthquake},
				{Boundary: 5.0, Severity: domain.SeverityMedium, HazardType: domain.HazardEarthquake},
				{Boundary: 6.0, Severity: domain.SeverityHigh, HazardType: domain.HazardEarthquake},
				{Boundary: 7.0, Severity: domain.SeverityCritical, HazardType: domain.HazardEarthquake},
			},
		},
		domain.CategoryWeather: {
			domain.KeyWindSpeed: {
				{Boundary: 62, Severity: domain.SeverityLow, HazardType: domain.HazardStorm},
				{Boundary: 89, Severity: domain.SeverityMedium, HazardType: domain.HazardStorm},
				{Boundary: 118, Severity: domain.SeverityHigh, HazardType: domain.HazardCyclone},
				{Boundary: 150, Severity: domain.SeverityCritical, HazardType: domain.HazardCyclone},
			},
			domain.KeyRainfall: {
				{Boundary: 60, Severity: domain.SeverityLow, HazardType: domain.HazardStorm},
				{Boundary: 100, Severity: domain.SeverityMedium, HazardType: domain.HazardStorm},
				{Boundary: 150, Severity: domain.SeverityHigh, HazardType: domain.HazardStorm},
				{Boundary: 200, Severity: domain.SeverityCritical, HazardType: domain.HazardStorm},
			},
			domain.KeyTemperature: {
				{Boundary: 40, Severity: domain.SeverityLow, HazardType: domain.HazardHeatwave},
				{Boundary: 42, Severity: domain.SeverityMedium, HazardType: domain.HazardHeatwave},
				{Boundary: 45, Severity: domain.SeverityHigh, HazardType: domain.HazardHeatwave},
				{Boundary: 48, Severity: domain.SeverityCritical, HazardType: domain.HazardHeatwave},
			},
		},
		domain.CategoryHydrological: {
			domain.KeyWaterLevel: {
				{Boundary: 6, Severity: domain.SeverityLow, HazardType: domain.HazardFlood},
				{Boundary: 7, Severity: domain.SeverityMedium, HazardType: domain.HazardFlood},
				{Boundary: 8, Severity: domain.SeverityHigh, HazardType: domain.HazardFlood},
				{Boundary: 10, Severity: domain.SeverityCritical, HazardType: domain.HazardFlood},
			},
			domain.KeyRainfall: {
				{Boundary: 80, Severity: domain.SeverityLow, HazardType: domain.HazardFlood},
				{Boundary: 120, Severity: domain.SeverityMedium, HazardType: domain.HazardFlood},
				{Boundary: 170, Severity: domain.SeverityHigh, HazardType: domain.HazardFlood},
				{Boundary: 220, Severity: domain.SeverityCritical, HazardType: domain.HazardFlood},
			},
		},
	}
}

// LoadTables returns the defaults overlaid with the YAML file at path, when
// given. A category/key present in the file replaces that key's rows
// wholesale; absent keys keep their defaults. The merged result is validated
// before use.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read threshold tables: %w", err)
		}
		var override Tables
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("parse threshold tables: %w", err)
		}
		for category, table := range override {
			if tables[category] == nil {
				tables[category] = Table{}
			}
			for key, rows := range table {
				tables[category][key] = rows
			}
		}
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}
