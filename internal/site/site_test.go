package site

import (
	"testing"
	"time"
)

const summaryPage = `<html><body>
<a class="p_signoutlink" href="/myhome/16.0.0-131/access/signout.jsp?networkid=1234567&partner=adt">Sign Out</a>
<span id="p_singlePremise">Home  Sweet
Home</span>
<div id="divOrbTextSummary">Disarmed. All Quiet.</div>
<div class="p_zoneRow" id="zone-1">
  <span class="p_zoneName">Front Door</span>
  <span class="p_zoneState">Closed</span>
  <span class="p_zoneStatus">Online</span>
</div>
<div class="p_zoneRow" id="zone-7">
  <span class="p_zoneName">Motion Sensor</span>
  <span class="p_zoneState">No Motion</span>
  <span class="p_zoneStatus">Online</span>
</div>
</body></html>`

const orbPage = `<html><body>
<div id="divOrbTextSummary">Armed Away. All Quiet.</div>
<div class="p_zoneRow" id="zone-1">
  <span class="p_zoneName">Front Door</span>
  <span class="p_zoneState">Open</span>
  <span class="p_zoneStatus">Online</span>
</div>
<div class="p_zoneRow" id="zone-7">
  <span class="p_zoneName">Motion Sensor</span>
  <span class="p_zoneState">No Motion</span>
  <span class="p_zoneStatus">Online</span>
</div>
</body></html>`

const errorPage = `<html><body>
<div id="warnMsgContents">Sign in unsuccessful. Please try again.</div>
</body></html>`

func applyBody(t *testing.T, h *Handler, body string) {
	t.Helper()
	doc, err := h.Parse([]byte(body))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	h.Apply(doc)
}

func TestDocument_LoginError(t *testing.T) {
	doc, err := ParseDocument([]byte(errorPage))
	if err != nil {
		t.Fatalf("ParseDocument() failed: %v", err)
	}
	want := "Sign in unsuccessful. Please try again."
	if got := doc.LoginError(); got != want {
		t.Errorf("LoginError() = %q, want %q", got, want)
	}

	doc, err = ParseDocument([]byte(summaryPage))
	if err != nil {
		t.Fatalf("ParseDocument() failed: %v", err)
	}
	if got := doc.LoginError(); got != "" {
		t.Errorf("LoginError() on a healthy page = %q, want empty", got)
	}
}

func TestHandler_DiscoverSite(t *testing.T) {
	h := NewHandler()
	applyBody(t, h, summaryPage)

	s := h.Snapshot()
	if s.ID != "1234567" {
		t.Errorf("site ID = %q, want %q", s.ID, "1234567")
	}
	// Interior whitespace collapses to single spaces.
	if s.Name != "Home Sweet Home" {
		t.Errorf("site name = %q, want %q", s.Name, "Home Sweet Home")
	}
	if s.AlarmStatus != "Disarmed. All Quiet." {
		t.Errorf("alarm status = %q", s.AlarmStatus)
	}
	if s.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped")
	}
}

func TestHandler_Zones(t *testing.T) {
	h := NewHandler()
	applyBody(t, h, summaryPage)

	s := h.Snapshot()
	if len(s.Zones) != 2 {
		t.Fatalf("zone count = %d, want 2", len(s.Zones))
	}

	front := s.Zones[0]
	if front.ID != 1 || front.Name != "Front Door" ||
		front.State != "Closed" || front.Status != "Online" {
		t.Errorf("front door zone = %+v", front)
	}
	motion := s.Zones[1]
	if motion.ID != 7 || motion.Name != "Motion Sensor" {
		t.Errorf("motion zone = %+v", motion)
	}
}

func TestHandler_ZoneStateChangeStampsActivity(t *testing.T) {
	h := NewHandler()
	applyBody(t, h, summaryPage)

	before := h.Snapshot()
	time.Sleep(5 * time.Millisecond)
	applyBody(t, h, orbPage)
	after := h.Snapshot()

	if after.AlarmStatus != "Armed Away. All Quiet." {
		t.Errorf("alarm status = %q", after.AlarmStatus)
	}
	if len(after.Zones) != 2 {
		t.Fatalf("zone count = %d, want 2", len(after.Zones))
	}

	// Zone 1 changed Closed -> Open: its activity time must advance.
	if after.Zones[0].State != "Open" {
		t.Errorf("zone 1 state = %q, want Open", after.Zones[0].State)
	}
	if !after.Zones[0].LastActivity.After(before.Zones[0].LastActivity) {
		t.Error("changed zone did not get a fresh activity time")
	}

	// Zone 7 is unchanged: its activity time must not move.
	if !after.Zones[1].LastActivity.Equal(before.Zones[1].LastActivity) {
		t.Error("unchanged zone got a fresh activity time")
	}
}

func TestHandler_PageWithoutSiteDataIsNoop(t *testing.T) {
	h := NewHandler()
	applyBody(t, h, summaryPage)
	before := h.Snapshot()

	applyBody(t, h, "<html><body>nothing here</body></html>")
	after := h.Snapshot()

	if after.ID != before.ID || after.AlarmStatus != before.AlarmStatus {
		t.Error("empty page mutated site identity or alarm state")
	}
	if len(after.Zones) != len(before.Zones) {
		t.Errorf("zone count changed: %d -> %d", len(before.Zones), len(after.Zones))
	}
}

func TestHandler_SnapshotIsACopy(t *testing.T) {
	h := NewHandler()
	applyBody(t, h, summaryPage)

	s := h.Snapshot()
	s.Zones[0].Name = "mutated"

	if h.Snapshot().Zones[0].Name != "Front Door" {
		t.Error("snapshot mutation leaked into the handler's state")
	}
}

func TestZoneID(t *testing.T) {
	tests := []struct {
		elementID string
		want      int
		ok        bool
	}{
		{"zone-12", 12, true},
		{"zone-0", 0, true},
		{"zone-", 0, false},
		{"zone-abc", 0, false},
		{"row-12", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := zoneID(tt.elementID)
		if got != tt.want || ok != tt.ok {
			t.Errorf("zoneID(%q) = (%d, %v), want (%d, %v)",
				tt.elementID, got, ok, tt.want, tt.ok)
		}
	}
}
