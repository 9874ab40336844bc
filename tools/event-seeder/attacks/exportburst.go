package attacks

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/stayops-systems/sentinel/internal/models"
)

// ExportBurst generates a rapid sequence of bulk export operations by a
// single actor across guest-facing datasets, the shape of a data
// exfiltration attempt by a compromised staff account.
type ExportBurst struct{}

func init() {
	Register(&ExportBurst{})
}

func (a *ExportBurst) Name() string {
	return "export-burst"
}

func (a *ExportBurst) Description() string {
	return "Rapid bulk exports of guest data by a single actor"
}

func (a *ExportBurst) DefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"actor":   "revenue.analyst",
		"tenant":  "grand-plaza",
		"exports": 8,
	}
}

func (a *ExportBurst) Generate(cfg *Config) ([]models.SecurityEvent, error) {
	actor := GetStringParam(cfg, "actor", "revenue.analyst")
	tenant := GetStringParam(cfg, "tenant", "grand-plaza")
	exports := GetIntParam(cfg, "exports", 8)
	if exports <= 0 {
		return nil, fmt.Errorf("exports must be positive")
	}

	resources := []string{"reservations", "guests", "invoices", "payments", "loyalty_members"}
	ip := gofakeit.IPv4Address()

	events := make([]models.SecurityEvent, 0, exports)
	start := cfg.Now.Add(-time.Duration(exports) * 30 * time.Second)
	for i := 0; i < exports; i++ {
		resource := resources[i%len(resources)]
		events = append(events, models.SecurityEvent{
			Timestamp: start.Add(time.Duration(i) * 30 * time.Second),
			ActorID:   actor,
			TenantID:  tenant,
			Action:    models.ActionBulkExport,
			Resource:  resource,
			IPAddress: ip,
			Details: map[string]interface{}{
				"format":    "csv",
				"row_count": 5000 + rand.Intn(45000),
			},
		})
	}
	return events, nil
}
