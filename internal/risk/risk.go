// Package risk gates form submissions on the automation verdict, the
// visitor's interaction timing and IP reputation.
package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shortontech/goblade/internal/fingerprint"
)

const (
	fastClickMs     = 100
	fastFormSeconds = 3
	highFraudScore  = 75
)

type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Complete reports whether every field has been filled in.
func (f Form) Complete() bool {
	return strings.TrimSpace(f.Name) != "" && strings.TrimSpace(f.Email) != "" && strings.TrimSpace(f.Message) != ""
}

// Behaviour is the interaction record gathered by the page. Times are Unix
// milliseconds.
type Behaviour struct {
	ClickTimes    []int64 `json:"clickTimes"`
	FormStartedAt int64   `json:"formStartedAt"`
	SubmittedAt   int64   `json:"submittedAt"`
	Form          Form    `json:"form"`
}

type Verdict struct {
	Passed            bool                `json:"passed"`
	SuspiciousReasons []string            `json:"suspiciousReasons"`
	ClickSpeed        int                 `json:"clickSpeed"`
	FormFillTime      int                 `json:"formFillTime"`
	RiskScore         int                 `json:"riskScore"`
	Fingerprint       *fingerprint.Bundle `json:"fingerprint,omitempty"`
}

// Gate evaluates submissions. The zero value is ready to use.
type Gate struct {
	now func() time.Time
}

func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Evaluate returns the verdict for one submission. A zero SubmittedAt is
// taken as the current time.
func (g *Gate) Evaluate(b fingerprint.Bundle, beh Behaviour) Verdict {
	now := beh.SubmittedAt
	if now == 0 {
		clock := time.Now
		if g != nil && g.now != nil {
			clock = g.now
		}
		now = clock().UnixMilli()
	}

	v := Verdict{
		SuspiciousReasons: []string{},
		ClickSpeed:        ClickSpeed(beh.ClickTimes),
		FormFillTime:      FormFillTime(beh.FormStartedAt, now),
		RiskScore:         b.Selenium.RiskScore,
		Fingerprint:       &b,
	}

	if b.Selenium.IsAutomated {
		v.SuspiciousReasons = append(v.SuspiciousReasons, "Automated browser detected (Selenium/Headless)")
	}
	if v.ClickSpeed > 0 && v.ClickSpeed < fastClickMs {
		v.SuspiciousReasons = append(v.SuspiciousReasons,
			fmt.Sprintf("Abnormally fast click speed: %dms (human average: 200-500ms)", v.ClickSpeed))
	}
	if v.FormFillTime < fastFormSeconds && beh.Form.Complete() {
		v.SuspiciousReasons = append(v.SuspiciousReasons,
			fmt.Sprintf("Form filled too quickly: %ds (suspicious for complete form)", v.FormFillTime))
	}
	if ip := b.IPQS; ip != nil && ip.Success {
		if ip.FraudScore > highFraudScore {
			v.SuspiciousReasons = append(v.SuspiciousReasons, fmt.Sprintf("High fraud score: %d", ip.FraudScore))
		}
		if ip.Proxy || ip.VPN {
			v.SuspiciousReasons = append(v.SuspiciousReasons, "Proxy or VPN detected")
		}
		if ip.BotStatus {
			v.SuspiciousReasons = append(v.SuspiciousReasons, "Bot status flagged by IPQS")
		}
	}
	v.Passed = len(v.SuspiciousReasons) == 0
	return v
}

// ClickSpeed is the rounded mean interval in milliseconds between
// consecutive clicks, 0 with fewer than two clicks.
func ClickSpeed(clicks []int64) int {
	if len(clicks) < 2 {
		return 0
	}
	var total int64
	for i := 1; i < len(clicks); i++ {
		total += clicks[i] - clicks[i-1]
	}
	return roundHalfUp(float64(total) / float64(len(clicks)-1))
}

// FormFillTime is the rounded number of seconds between start and submit,
// 0 when the form was never started.
func FormFillTime(startedAt, submittedAt int64) int {
	if startedAt == 0 {
		return 0
	}
	return roundHalfUp(float64(submittedAt-startedAt) / 1000)
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
