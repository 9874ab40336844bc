package attacks

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/stayops-systems/sentinel/internal/models"
)

// FinancialTamper generates a cluster of refunds and voided invoices by
// one actor, the shape of internal financial fraud.
type FinancialTamper struct{}

func init() {
	Register(&FinancialTamper{})
}

func (a *FinancialTamper) Name() string {
	return "financial-tamper"
}

func (a *FinancialTamper) Description() string {
	return "Cluster of refunds and voided invoices by a single actor"
}

func (a *FinancialTamper) DefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"actor":      "billing.clerk",
		"tenant":     "grand-plaza",
		"operations": 6,
	}
}

func (a *FinancialTamper) Generate(cfg *Config) ([]models.SecurityEvent, error) {
	actor := GetStringParam(cfg, "actor", "billing.clerk")
	tenant := GetStringParam(cfg, "tenant", "grand-plaza")
	operations := GetIntParam(cfg, "operations", 6)
	if operations <= 0 {
		return nil, fmt.Errorf("operations must be positive")
	}

	ip := gofakeit.IPv4Address()

	events := make([]models.SecurityEvent, 0, operations)
	start := cfg.Now.Add(-time.Duration(operations) * time.Minute)
	for i := 0; i < operations; i++ {
		action := models.ActionRefundIssued
		resource := "payments"
		details := map[string]interface{}{
			"amount":   float64(50+rand.Intn(450)) + 0.99,
			"currency": "USD",
		}
		if i%2 == 1 {
			action = models.ActionInvoiceVoided
			resource = "invoices"
			details = map[string]interface{}{
				"reason": "guest dispute",
			}
		}

		events = append(events, models.SecurityEvent{
			Timestamp:  start.Add(time.Duration(i) * time.Minute),
			ActorID:    actor,
			TenantID:   tenant,
			Action:     action,
			Resource:   resource,
			ResourceID: gofakeit.UUID(),
			IPAddress:  ip,
			Details:    details,
		})
	}
	return events, nil
}
