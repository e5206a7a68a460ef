package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{
			name: "local path",
			uri:  "/music/a.mp3",
		},
		{
			name: "https url",
			uri:  "https://example.com/stream.mp3",
		},
		{
			name:    "empty locator",
			uri:     "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			uri:     "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trk, err := New(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.uri, trk.URI)
		})
	}
}

func TestTrack_String(t *testing.T) {
	trk := Track{URI: "/music/a.mp3"}
	assert.Equal(t, "/music/a.mp3", trk.String())

	trk.Title = "A Song"
	trk.Duration = 3 * time.Minute
	assert.Equal(t, "A Song", trk.String())
}
