package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCliParams(t *testing.T) {
	tests := []struct {
		name string
		want *Run
	}{
		{
			name: "default CLI params",
			want: &Run{
				MinLogLevel: 0,
				Mode:        ModeInteractive,
				NoColor:     false,
				ExitOnError: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCliParams()
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Interactive())
		})
	}
}

func TestInteractive(t *testing.T) {
	var nilRun *Run
	assert.False(t, nilRun.Interactive())
	assert.False(t, (&Run{Mode: ModeQuery}).Interactive())
	assert.False(t, (&Run{Mode: ModeServe}).Interactive())
}

func TestUserAgent(t *testing.T) {
	v := VersionInfo{BuildVersion: "v1.2.3"}
	assert.Equal(t, "archsearch/v1.2.3", v.UserAgent())
}
