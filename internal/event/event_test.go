package event

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shortontech/goblade/internal/detection"
)

func TestEventJSON_OmitsEmptyOptionalParts(t *testing.T) {
	e := New(TypeEvaluate)
	e.Result = &detection.Result{IsAutomated: true, RiskScore: 55, DetectedIndicators: []string{"navigator.webdriver is true"}}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"event_id":`, `"type":"evaluate"`, `"riskScore":55`, `"signals":`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}
	for _, absent := range []string{`"fingerprint"`, `"verdict"`, `"ip_hash"`} {
		if strings.Contains(s, absent) {
			t.Errorf("json %s should omit %s", s, absent)
		}
	}
}
