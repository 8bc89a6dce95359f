package source

import "github.com/hazardwatch/alert-engine/internal/domain"

// Fixed monitored-location sets per category. The weather and hydrological
// feeds are polled per location; the synthetic fallback generators draw from
// the same sets so fallback output stays plausible for the region being
// monitored.

var seismicLocations = []domain.Location{
	{Name: "Nepal-India Border", Lat: 27.7, Lon: 85.3},
	{Name: "Pacific Ring of Fire", Lat: 35.0, Lon: 139.0},
	{Name: "San Andreas Fault", Lat: 37.0, Lon: -122.0},
	{Name: "Indonesian Arc", Lat: -5.0, Lon: 110.0},
	{Name: "Alpine-Himalayan Belt", Lat: 38.0, Lon: 46.0},
}

var weatherLocations = []domain.Location{
	{Name: "Bay of Bengal", Lat: 15.0, Lon: 87.0},
	{Name: "Arabian Sea", Lat: 15.0, Lon: 65.0},
	{Name: "Caribbean Sea", Lat: 18.0, Lon: -75.0},
	{Name: "Thar Desert", Lat: 27.0, Lon: 71.0},
	{Name: "Indo-Gangetic Plain", Lat: 28.0, Lon: 80.0},
}

var hydroLocations = []domain.Location{
	{Name: "Brahmaputra Basin", Lat: 26.1, Lon: 91.7},
	{Name: "Ganges Delta", Lat: 23.5, Lon: 90.3},
	{Name: "Kosi Basin", Lat: 26.5, Lon: 86.9},
	{Name: "Mekong Delta", Lat: 10.5, Lon: 105.8},
}
