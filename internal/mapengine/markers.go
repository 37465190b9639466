package mapengine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/overlay"
	"github.com/joeblew999/plat-intel/internal/reference"
)

// Overlay visibility rules.
const (
	datacenterMinZoom  = 5
	techHQMinZoom      = 3
	techEventHorizon   = 90 // days
	popupItemsMaxCount = 10
)

var severityRank = map[string]int{"high": 3, "medium": 2, "low": 1}

func orbPoint(c LatLon) orb.Point { return orb.Point{c.Lon, c.Lat} }

// topProtest picks the most severe member, ties by id order.
func topProtest(members []entity.SocialUnrestEvent) entity.SocialUnrestEvent {
	top := members[0]
	for _, m := range members[1:] {
		if severityRank[m.Severity] > severityRank[top.Severity] {
			top = m
		}
	}
	return top
}

// buildMarkers lists the overlay markers and the popup of each. Caller holds
// e.mu and has derived state.
func (e *Engine) buildMarkers() ([]overlay.Marker, map[string]overlay.Popup) {
	var markers []overlay.Marker
	popups := map[string]overlay.Popup{}
	add := func(m overlay.Marker, p overlay.Popup) {
		p.MarkerID = m.ID
		if p.Count == 0 {
			p.Count = 1
		}
		markers = append(markers, m)
		popups[m.ID] = p
	}

	for _, g := range e.derived.protestGroups {
		members := make([]entity.SocialUnrestEvent, 0, g.Size())
		for _, id := range g.Members {
			if p, ok := e.derived.protests[id]; ok {
				members = append(members, p)
			}
		}
		if len(members) == 0 {
			continue
		}
		top := topProtest(members)
		popup := overlay.Popup{Title: top.Title, Summary: top.Summary, Count: len(members)}
		if len(members) > 1 {
			for _, m := range members {
				if m.ID == top.ID {
					continue
				}
				if len(popup.Items) == popupItemsMaxCount {
					break
				}
				popup.Items = append(popup.Items, m.Title)
			}
		}
		add(overlay.Marker{
			ID:      g.ID,
			Class:   overlay.ClassProtest,
			Lat:     g.Center.Lat(),
			Lon:     g.Center.Lon(),
			Title:   top.Title,
			Summary: top.Summary,
			Count:   len(members),
		}, popup)
	}

	sites := e.static.ref.Sites
	if e.flags.Datacenters && e.zoom >= datacenterMinZoom {
		for _, s := range sites.Datacenters {
			e.addSite(add, overlay.ClassDatacenter, s)
		}
	}
	if e.flags.TechHQs && e.zoom >= techHQMinZoom {
		for _, s := range sites.TechHQs {
			e.addSite(add, overlay.ClassTechHQ, s)
		}
	}

	if e.flags.TechEvents {
		now := e.cfg.Now()
		events := append([]entity.TechEvent(nil), e.data.techEvents...)
		sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
		for _, ev := range events {
			if ev.Ended(now) {
				continue
			}
			days := ev.DaysUntil(now)
			if days > techEventHorizon {
				continue
			}
			var summary string
			if days > 0 {
				summary = fmt.Sprintf("%s, in %d days", ev.Location, days)
			} else {
				summary = fmt.Sprintf("%s, happening now", ev.Location)
			}
			add(overlay.Marker{
				ID:      "tech-event-" + ev.ID,
				Class:   overlay.ClassTechEvent,
				Lat:     ev.Lat,
				Lon:     ev.Lon,
				Title:   ev.Title,
				Summary: summary,
			}, overlay.Popup{Title: ev.Title, Summary: summary})
		}
	}
	return markers, popups
}

func (e *Engine) addSite(add func(overlay.Marker, overlay.Popup), class string, s reference.Site) {
	if !entity.ValidCoords(s.Lat, s.Lon) {
		return
	}
	var parts []string
	for _, p := range []string{s.Operator, s.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	summary := strings.Join(parts, ", ")
	add(overlay.Marker{ID: s.ID, Class: class, Lat: s.Lat, Lon: s.Lon, Title: s.Name, Summary: summary},
		overlay.Popup{Title: s.Name, Summary: summary})
}
