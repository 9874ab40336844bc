package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

func TestEvalCondition(t *testing.T) {
	threat := highRiskThreat()

	tests := []struct {
		name string
		cond models.ResponseCondition
		want bool
	}{
		{
			name: "risk score greater than",
			cond: models.ResponseCondition{Field: models.ThreatFieldRiskScore, Operator: models.OpGreaterThan, Value: "90"},
			want: true,
		},
		{
			name: "risk score less than fails",
			cond: models.ResponseCondition{Field: models.ThreatFieldRiskScore, Operator: models.OpLessThan, Value: "90"},
			want: false,
		},
		{
			name: "confidence equals",
			cond: models.ResponseCondition{Field: models.ThreatFieldConfidence, Operator: models.OpEquals, Value: "85"},
			want: true,
		},
		{
			name: "threat type in list",
			cond: models.ResponseCondition{Field: models.ThreatFieldType, Operator: models.OpIn, Values: []string{"brute_force", "account_takeover"}},
			want: true,
		},
		{
			name: "threat type not in list",
			cond: models.ResponseCondition{Field: models.ThreatFieldType, Operator: models.OpNotIn, Values: []string{"data_exfiltration"}},
			want: true,
		},
		{
			name: "status regex",
			cond: models.ResponseCondition{Field: models.ThreatFieldStatus, Operator: models.OpRegex, Value: "^(active|investigating)$"},
			want: true,
		},
		{
			name: "resources contains",
			cond: models.ResponseCondition{Field: models.ThreatFieldResources, Operator: models.OpContains, Value: "invoice"},
			want: true,
		},
		{
			name: "resources not equals any",
			cond: models.ResponseCondition{Field: models.ThreatFieldResources, Operator: models.OpNotEquals, Value: "payroll"},
			want: true,
		},
		{
			name: "indicator count",
			cond: models.ResponseCondition{Field: models.ThreatFieldIndicatorCount, Operator: models.OpEquals, Value: "2"},
			want: true,
		},
		{
			name: "resource count less than",
			cond: models.ResponseCondition{Field: models.ThreatFieldResourceCount, Operator: models.OpLessThan, Value: "3"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalCondition(&tt.cond, threat)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalCondition_Unevaluable(t *testing.T) {
	threat := highRiskThreat()

	_, err := evalCondition(&models.ResponseCondition{
		Field: models.ThreatFieldRiskScore, Operator: models.OpGreaterThan, Value: "high",
	}, threat)
	assert.Error(t, err)

	_, err = evalCondition(&models.ResponseCondition{
		Field: models.ThreatFieldType, Operator: models.OpGreaterThan, Value: "1",
	}, threat)
	assert.Error(t, err)
}
