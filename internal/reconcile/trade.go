package reconcile

import (
	"strings"

	"github.com/gosimple/slug"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
)

// Classifier assigns a trade to a job. Overrides are matched on the
// slugged business-unit name so spacing and case do not matter.
type Classifier struct {
	overrides map[string]jobdomain.Trade
}

// NewClassifier merges override maps left to right; later maps win.
func NewClassifier(overrides ...map[string]string) Classifier {
	c := Classifier{overrides: make(map[string]jobdomain.Trade)}
	for _, m := range overrides {
		for name, trade := range m {
			key := slug.Make(name)
			if key == "" {
				continue
			}
			switch jobdomain.Trade(strings.ToLower(strings.TrimSpace(trade))) {
			case jobdomain.TradePlumbing:
				c.overrides[key] = jobdomain.TradePlumbing
			case jobdomain.TradeHVAC:
				c.overrides[key] = jobdomain.TradeHVAC
			}
		}
	}
	return c
}

func (c Classifier) Classify(businessUnitName, jobTypeName string) jobdomain.Trade {
	if t, ok := c.overrides[slug.Make(businessUnitName)]; ok {
		return t
	}

	bu := strings.ToLower(businessUnitName)
	switch {
	case strings.Contains(bu, "plumb"):
		return jobdomain.TradePlumbing
	case strings.Contains(bu, "hvac"), strings.Contains(bu, "heat"), strings.Contains(bu, "cool"):
		return jobdomain.TradeHVAC
	}

	jt := strings.TrimSpace(jobTypeName)
	if strings.HasPrefix(strings.ToUpper(jt), "PLUMBING") || strings.Contains(strings.ToLower(jt), "plumb") {
		return jobdomain.TradePlumbing
	}
	return jobdomain.TradeHVAC
}
