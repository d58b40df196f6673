package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTargets(t *testing.T) {
	tests := []struct {
		name    string
		targets []PgBouncerConfig
		wantErr error
	}{
		{
			name:    "no targets",
			targets: nil,
			wantErr: ErrNoTargets,
		},
		{
			name:    "single target with empty labels",
			targets: []PgBouncerConfig{{DSN: DefaultDSN}},
		},
		{
			name:    "empty dsn",
			targets: []PgBouncerConfig{{DSN: "  "}},
			wantErr: ErrEmptyDSN,
		},
		{
			name: "two targets with empty labels",
			targets: []PgBouncerConfig{
				{DSN: DefaultDSN, ExtraLabels: map[string]string{}},
				{DSN: DefaultDSN},
			},
			wantErr: ErrDuplicateLabels,
		},
		{
			name: "two targets with same labels",
			targets: []PgBouncerConfig{
				{DSN: DefaultDSN, ExtraLabels: map[string]string{"pool_id": "1", "zone": "a"}},
				{DSN: DefaultDSN, ExtraLabels: map[string]string{"zone": "a", "pool_id": "1"}},
			},
			wantErr: ErrDuplicateLabels,
		},
		{
			name: "two targets with distinct labels",
			targets: []PgBouncerConfig{
				{DSN: DefaultDSN, ExtraLabels: map[string]string{"pool_id": "1"}},
				{DSN: DefaultDSN, ExtraLabels: map[string]string{"pool_id": "2"}},
			},
		},
		{
			name: "one target without labels and one with",
			targets: []PgBouncerConfig{
				{DSN: DefaultDSN},
				{DSN: DefaultDSN, ExtraLabels: map[string]string{"pool_id": "2"}},
			},
		},
		{
			name:    "invalid label name",
			targets: []PgBouncerConfig{{DSN: DefaultDSN, ExtraLabels: map[string]string{"pool-id": "1"}}},
			wantErr: ErrInvalidLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargets(tt.targets)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateNegativeTimeout(t *testing.T) {
	err := ValidateTargets([]PgBouncerConfig{{DSN: DefaultDSN, ConnectTimeout: -1}})
	assert.Error(t, err)
}
