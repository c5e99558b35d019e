package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid limit only",
			cfg:     Config{Limit: 6},
			wantErr: false,
		},
		{
			name:    "valid offset only",
			cfg:     Config{Offset: 2},
			wantErr: false,
		},
		{
			name:    "negative limit invalid",
			cfg:     Config{Limit: -1},
			wantErr: true,
			errMsg:  "non-negative",
		},
		{
			name:    "negative offset invalid",
			cfg:     Config{Offset: -1},
			wantErr: true,
			errMsg:  "non-negative",
		},
		{
			name:    "zero values valid",
			cfg:     Config{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}

	tests := []struct {
		name string
		cfg  Config
		want []int
	}{
		{name: "inactive returns input", cfg: Config{}, want: items},
		{name: "cap at six", cfg: Config{Limit: 6}, want: []int{1, 2, 3, 4, 5, 6}},
		{name: "limit larger than input", cfg: Config{Limit: 20}, want: items},
		{name: "offset and limit", cfg: Config{Offset: 2, Limit: 3}, want: []int{3, 4, 5}},
		{name: "offset past end", cfg: Config{Offset: 20}, want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.cfg, items))
		})
	}
}

func TestApplyDoesNotLeakCapacity(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	window := Apply(Config{Limit: 2}, items)
	require.Len(t, window, 2)
	window = append(window, "z")
	assert.Equal(t, "c", items[2], "appending to the window must not overwrite the source")
	assert.Equal(t, []string{"a", "b", "z"}, window)
}

func TestApplyNil(t *testing.T) {
	var items []string
	assert.Empty(t, Apply(Config{Limit: 6}, items))
}

func TestMin(t *testing.T) {
	assert.Equal(t, Config{Limit: 3}, Config{Limit: 6}.Min(Config{Limit: 3}))
	assert.Equal(t, Config{Limit: 6}, Config{Limit: 6}.Min(Config{}))
	assert.Equal(t, Config{Limit: 4}, Config{}.Min(Config{Limit: 4}))
}
