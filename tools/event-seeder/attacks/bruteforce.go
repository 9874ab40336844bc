package attacks

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/stayops-systems/sentinel/internal/models"
)

// BruteForce generates a burst of failed logins against one account from
// a small set of source IPs, dense enough to trip the brute-force
// correlation rule.
type BruteForce struct{}

func init() {
	Register(&BruteForce{})
}

func (a *BruteForce) Name() string {
	return "brute-force"
}

func (a *BruteForce) Description() string {
	return "Repeated failed logins against one account from a handful of IPs"
}

func (a *BruteForce) DefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"actor":    "frontdesk.night",
		"tenant":   "grand-plaza",
		"attempts": 12,
		"ip-count": 3,
	}
}

func (a *BruteForce) Generate(cfg *Config) ([]models.SecurityEvent, error) {
	actor := GetStringParam(cfg, "actor", "frontdesk.night")
	tenant := GetStringParam(cfg, "tenant", "grand-plaza")
	attempts := GetIntParam(cfg, "attempts", 12)
	ipCount := GetIntParam(cfg, "ip-count", 3)
	if attempts <= 0 || ipCount <= 0 {
		return nil, fmt.Errorf("attempts and ip-count must be positive")
	}

	ips := make([]string, ipCount)
	for i := range ips {
		ips[i] = gofakeit.IPv4Address()
	}

	// Attempts land within a few minutes, well inside any rule window.
	events := make([]models.SecurityEvent, 0, attempts)
	start := cfg.Now.Add(-time.Duration(attempts) * 15 * time.Second)
	for i := 0; i < attempts; i++ {
		events = append(events, models.SecurityEvent{
			Timestamp: start.Add(time.Duration(i)*15*time.Second + time.Duration(rand.Intn(5))*time.Second),
			ActorID:   actor,
			TenantID:  tenant,
			Action:    models.ActionFailedLogin,
			IPAddress: ips[i%ipCount],
			Details: map[string]interface{}{
				"reason":     failureReason(),
				"user_agent": gofakeit.UserAgent(),
			},
		})
	}
	return events, nil
}

func failureReason() string {
	reasons := []string{
		"invalid credentials",
		"account locked",
		"password expired",
		"too many attempts",
	}
	return reasons[rand.Intn(len(reasons))]
}
