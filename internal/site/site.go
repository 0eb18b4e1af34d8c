package site

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/muurk/pulseguard/internal/client"
	"github.com/muurk/pulseguard/internal/logging"
)

var networkIDPattern = regexp.MustCompile(`networkid=([^&]+)`)

// Zone is one security zone (door/window sensor, motion detector, and
// so on) belonging to the site.
type Zone struct {
	// ID is the portal's numeric zone id.
	ID int

	// Name is the user-assigned zone name (e.g. "Front Door").
	Name string

	// Status is the device health line (e.g. "Online", "Low Battery").
	Status string

	// State is the sensor reading (e.g. "Closed", "Open", "Motion").
	State string

	// LastActivity is when the portal last reported a change for this
	// zone, as observed by this client.
	LastActivity time.Time
}

// Site is the single modeled premise: identity, alarm state, and the
// zones the portal reports for it.
type Site struct {
	ID          string
	Name        string
	AlarmStatus string
	Zones       []Zone
	LastUpdated time.Time
}

// Handler applies parsed portal pages to one Site. It satisfies the
// client engine's ContentHandler interface and is safe for concurrent
// use: the engine applies updates from its background tasks while the
// CLI and TUI read snapshots.
type Handler struct {
	mu   sync.Mutex
	site Site
}

// NewHandler returns an empty Handler; the site is populated by the
// first Apply.
func NewHandler() *Handler {
	return &Handler{}
}

var _ client.ContentHandler = (*Handler)(nil)

// Parse implements ContentHandler.
func (h *Handler) Parse(body []byte) (client.Document, error) {
	doc, err := ParseDocument(body)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Apply implements ContentHandler: it folds a parsed page into the
// site model. Pages that carry no site data (the keepalive response,
// for instance) simply leave the model unchanged.
func (h *Handler) Apply(parsed client.Document) {
	doc, ok := parsed.(*Document)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.site.ID == "" {
		h.discoverSite(doc)
	}
	if status := doc.alarmStatus(); status != "" {
		if status != h.site.AlarmStatus {
			logging.Info("Alarm status changed",
				zap.String("from", h.site.AlarmStatus),
				zap.String("to", status),
			)
		}
		h.site.AlarmStatus = status
	}
	h.applyZones(doc)
	h.site.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current site state.
func (h *Handler) Snapshot() Site {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.site
	s.Zones = make([]Zone, len(h.site.Zones))
	copy(s.Zones, h.site.Zones)
	return s
}

// discoverSite extracts the premise identity from a summary page. The
// portal models one "single premise" per page; accounts with several
// premises render a picker instead, which this client does not support.
func (h *Handler) discoverSite(doc *Document) {
	name := doc.premiseName()
	if name == "" {
		return
	}
	href := doc.signoutHref()
	m := networkIDPattern.FindStringSubmatch(href)
	if m == nil {
		logging.Warn("Could not find site id in sign-out link",
			zap.String("site", name),
			zap.String("href", href),
		)
		return
	}
	h.site.ID = m[1]
	h.site.Name = name
	logging.Debug("Discovered site",
		zap.String("id", h.site.ID),
		zap.String("name", name),
	)
}

// applyZones updates the zone list from the orb rows on the page, if
// any. Zone identity is the numeric id in the row's element id
// ("zone-12"); rows without one are skipped.
func (h *Handler) applyZones(doc *Document) {
	rows := doc.zoneRows()
	if len(rows) == 0 {
		return
	}
	now := time.Now()
	for _, row := range rows {
		id, ok := zoneID(attr(row, "id"))
		if !ok {
			continue
		}
		zone := Zone{
			ID:     id,
			Name:   childText(row, "p_zoneName"),
			Status: childText(row, "p_zoneStatus"),
			State:  childText(row, "p_zoneState"),
		}
		h.upsertZone(zone, now)
	}
}

func (h *Handler) upsertZone(zone Zone, now time.Time) {
	for i := range h.site.Zones {
		existing := &h.site.Zones[i]
		if existing.ID != zone.ID {
			continue
		}
		if existing.State != zone.State {
			logging.Info("Zone state changed",
				zap.String("zone", zone.Name),
				zap.String("from", existing.State),
				zap.String("to", zone.State),
			)
			existing.LastActivity = now
		}
		existing.Name = zone.Name
		existing.Status = zone.Status
		existing.State = zone.State
		return
	}
	zone.LastActivity = now
	h.site.Zones = append(h.site.Zones, zone)
}

func childText(row *html.Node, class string) string {
	node := findChildByClass(row, class)
	if node == nil {
		return ""
	}
	return nodeText(node)
}

func zoneID(elementID string) (int, bool) {
	const prefix = "zone-"
	if !strings.HasPrefix(elementID, prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(elementID, prefix))
	if err != nil {
		return 0, false
	}
	return id, true
}
