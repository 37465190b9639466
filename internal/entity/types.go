// Package entity defines the geo entities pushed into the map engine.
//
// Every collection is an immutable snapshot. The engine copies what it is
// given and never writes back into caller-owned values. Struct tags follow
// the Huma conventions so the same types document the HTTP surface.
package entity

import (
	"math"
	"time"
)

// Earthquake is a seismic event.
type Earthquake struct {
	ID        string    `json:"id" doc:"Event identifier" example:"us7000abcd"`
	Place     string    `json:"place,omitempty" doc:"Human readable place"`
	Lat       float64   `json:"lat" doc:"Latitude"`
	Lon       float64   `json:"lon" doc:"Longitude"`
	Depth     float64   `json:"depth,omitempty" doc:"Depth in km"`
	Magnitude float64   `json:"magnitude" doc:"Magnitude"`
	Time      time.Time `json:"time" doc:"Origin time"`
	URL       string    `json:"url,omitempty" doc:"Detail page"`
}

// WeatherAlert is an active severe-weather alert. Lat/Lon is the area centroid.
type WeatherAlert struct {
	ID       string       `json:"id" doc:"Alert identifier"`
	Event    string       `json:"event" doc:"Alert event type" example:"Tornado Warning"`
	Severity string       `json:"severity" enum:"Extreme,Severe,Moderate,Minor,Unknown" doc:"Alert severity"`
	Headline string       `json:"headline,omitempty"`
	AreaDesc string       `json:"areaDesc,omitempty"`
	Lat      float64      `json:"lat"`
	Lon      float64      `json:"lon"`
	Polygon  [][2]float64 `json:"polygon,omitempty" doc:"Alert area ring as [lon, lat] pairs"`
	Onset    time.Time    `json:"onset,omitempty"`
	Expires  time.Time    `json:"expires,omitempty"`
}

// InternetOutage is a reported connectivity disruption.
type InternetOutage struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Country    string    `json:"country,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Severity   string    `json:"severity" enum:"partial,major,total"`
	Categories []string  `json:"categories,omitempty"`
	PubDate    time.Time `json:"pubDate,omitempty"`
}

// AisDisruptionEvent is a discrete anomaly in vessel traffic.
type AisDisruptionEvent struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type" enum:"gap_spike,chokepoint_congestion"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Severity    string  `json:"severity" enum:"low,elevated,high"`
	ChangePct   float64 `json:"changePct"`
	WindowHours int     `json:"windowHours"`
	VesselCount int     `json:"vesselCount,omitempty"`
	Description string  `json:"description,omitempty"`
}

// AisDensityZone is one cell of the continuous vessel density field.
type AisDensityZone struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Intensity   float64 `json:"intensity" minimum:"0" maximum:"1"`
	DeltaPct    float64 `json:"deltaPct"`
	ShipsPerDay int     `json:"shipsPerDay,omitempty"`
}

// DensityField is the density layer payload. It is array-like rather than a
// plain slice so consumers can treat it as a field.
type DensityField struct {
	Zones       []AisDensityZone `json:"zones"`
	WindowHours int              `json:"windowHours,omitempty"`
}

// Len returns the number of zones.
func (f DensityField) Len() int { return len(f.Zones) }

// MaxIntensity returns the peak intensity in the field.
func (f DensityField) MaxIntensity() float64 {
	peak := 0.0
	for _, z := range f.Zones {
		if z.Intensity > peak {
			peak = z.Intensity
		}
	}
	return peak
}

// CableAdvisory is a fault or degradation notice on a submarine cable.
type CableAdvisory struct {
	ID        string    `json:"id"`
	CableID   string    `json:"cableId" doc:"Foreign key into the cable reference set"`
	Title     string    `json:"title"`
	Severity  string    `json:"severity" enum:"fault,degraded"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Reported  time.Time `json:"reported,omitempty"`
	Impact    string    `json:"impact,omitempty"`
	RepairEta string    `json:"repairEta,omitempty"`
}

// RepairShip is a cable repair vessel, joined to advisories by CableID.
type RepairShip struct {
	ID       string  `json:"id"`
	CableID  string  `json:"cableId"`
	Name     string  `json:"name"`
	Status   string  `json:"status" enum:"enroute,on-station"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Eta      string  `json:"eta,omitempty"`
	Operator string  `json:"operator,omitempty"`
}

// AirportDelayAlert is a flight delay at an airport.
type AirportDelayAlert struct {
	ID              string  `json:"id"`
	Iata            string  `json:"iata"`
	Name            string  `json:"name"`
	City            string  `json:"city,omitempty"`
	Country         string  `json:"country,omitempty"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	DelayType       string  `json:"delayType" enum:"ground_stop,ground_delay,departure_delay,arrival_delay,general"`
	Severity        string  `json:"severity" enum:"normal,minor,moderate,major,severe"`
	AvgDelayMinutes int     `json:"avgDelayMinutes"`
	Reason          string  `json:"reason,omitempty"`
}

// MilitaryFlight is a tracked military aircraft.
type MilitaryFlight struct {
	ID            string    `json:"id"`
	Callsign      string    `json:"callsign"`
	Hex           string    `json:"hex,omitempty"`
	AircraftType  string    `json:"aircraftType" enum:"fighter,bomber,transport,tanker,awacs,reconnaissance,helicopter,drone,patrol,special_ops,vip,unknown"`
	Operator      string    `json:"operator,omitempty"`
	Country       string    `json:"country,omitempty"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Altitude      float64   `json:"altitude,omitempty"`
	Heading       float64   `json:"heading"`
	Speed         float64   `json:"speed"`
	LastSeen      time.Time `json:"lastSeen"`
	Confidence    string    `json:"confidence,omitempty" enum:"high,medium,low"`
	IsInteresting bool      `json:"isInteresting,omitempty"`
}

// MilitaryFlightCluster is a pre-aggregated or engine-derived flight group.
type MilitaryFlightCluster struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Lat              float64          `json:"lat"`
	Lon              float64          `json:"lon"`
	FlightCount      int              `json:"flightCount"`
	Flights          []MilitaryFlight `json:"flights"`
	DominantOperator string           `json:"dominantOperator,omitempty"`
	ActivityType     string           `json:"activityType,omitempty" enum:"exercise,patrol,transport,unknown"`
}

// MilitaryVessel is a tracked naval vessel.
type MilitaryVessel struct {
	ID            string    `json:"id"`
	Mmsi          string    `json:"mmsi,omitempty"`
	Name          string    `json:"name"`
	VesselType    string    `json:"vesselType" enum:"carrier,destroyer,frigate,submarine,amphibious,patrol,auxiliary,research,icebreaker,special,unknown"`
	Operator      string    `json:"operator,omitempty"`
	Country       string    `json:"country,omitempty"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Heading       float64   `json:"heading"`
	Speed         float64   `json:"speed"`
	LastAisUpdate time.Time `json:"lastAisUpdate"`
	Confidence    string    `json:"confidence,omitempty" enum:"high,medium,low"`
	IsDark        bool      `json:"isDark,omitempty" doc:"AIS transponder silent"`
}

// MilitaryVesselCluster is a pre-aggregated or engine-derived vessel group.
type MilitaryVesselCluster struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Lat          float64          `json:"lat"`
	Lon          float64          `json:"lon"`
	VesselCount  int              `json:"vesselCount"`
	Vessels      []MilitaryVessel `json:"vessels"`
	ActivityType string           `json:"activityType,omitempty" enum:"exercise,deployment,transit,unknown"`
}

// NaturalEvent is a tracked natural hazard (storm, volcano, wildfire...).
type NaturalEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Date      time.Time `json:"date"`
	Magnitude float64   `json:"magnitude,omitempty"`
	Closed    bool      `json:"closed,omitempty"`
}

// Fire is a satellite fire detection.
type Fire struct {
	ID         string    `json:"id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Brightness float64   `json:"brightness"`
	Frp        float64   `json:"frp" doc:"Fire radiative power (MW)"`
	Confidence int       `json:"confidence" minimum:"0" maximum:"100"`
	Region     string    `json:"region,omitempty"`
	Acquired   time.Time `json:"acquired"`
}

// SocialUnrestEvent is a protest, riot or strike.
type SocialUnrestEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	EventType  string    `json:"eventType" enum:"protest,riot,strike,demonstration,civil_unrest"`
	City       string    `json:"city,omitempty"`
	Country    string    `json:"country"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Time       time.Time `json:"time"`
	Severity   string    `json:"severity" enum:"low,medium,high"`
	Fatalities int       `json:"fatalities,omitempty"`
	Sources    []string  `json:"sources,omitempty"`
	Validated  bool      `json:"validated"`
}

// TechEvent is a time-windowed technology event.
type TechEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type" enum:"conference,summit,meetup,launch"`
	Location  string    `json:"location"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	URL       string    `json:"url,omitempty"`
}

// DaysUntil returns whole days from now until the event starts. Negative
// once started. Derived on read, never stored.
func (e TechEvent) DaysUntil(now time.Time) int {
	return int(math.Floor(e.StartDate.Sub(now).Hours() / 24))
}

// Ended reports whether the event is over at now.
func (e TechEvent) Ended(now time.Time) bool {
	end := e.EndDate
	if end.IsZero() {
		end = e.StartDate
	}
	return end.Before(now)
}

// NewsLocation is a geolocated news item. ID may be empty, in which case the
// position in the collection identifies it.
type NewsLocation struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	ThreatLevel string    `json:"threatLevel,omitempty" enum:"critical,high,medium,low,info"`
	Time        time.Time `json:"time,omitempty"`
}
