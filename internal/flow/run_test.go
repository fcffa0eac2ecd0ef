package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		plan       Plan
		wantErr    error
		wantListed bool
		wantStops  int
		wantChosen string
		wantStopID string
		wantLines  int
		geocodes   int
		lineCalls  []string
	}{
		{
			name:       "list stops by coordinates",
			plan:       Plan{Lat: ptr(32.08), Lon: ptr(34.78), ListStops: true},
			wantListed: true,
			wantStops:  4,
		},
		{
			name:       "list stops with limit",
			plan:       Plan{Lat: ptr(32.08), Lon: ptr(34.78), ListStops: true, LimitStops: 2},
			wantListed: true,
			wantStops:  2,
		},
		{
			name:       "first stop by address then lines",
			plan:       Plan{Address: "Dizengoff", FirstStop: true},
			wantListed: true,
			wantStops:  4,
			wantChosen: "No id stop",
			wantErr:    ErrUnresolvableStop,
			geocodes:   1,
		},
		{
			name:       "coordinates win over address",
			plan:       Plan{Address: "Dizengoff", Lat: ptr(32.08), Lon: ptr(34.78), ListStops: true},
			wantListed: true,
			wantStops:  4,
		},
		{
			name:     "address index out of range",
			plan:     Plan{Address: "Dizengoff", AddressIndex: 5, ListStops: true},
			wantErr:  ErrIndexOutOfRange,
			geocodes: 1,
		},
		{
			name:    "list stops needs a location",
			plan:    Plan{ListStops: true},
			wantErr: ErrNeedLocation,
		},
		{
			name:    "only one of lat and lon",
			plan:    Plan{Lat: ptr(32.08), FirstStop: true},
			wantErr: ErrNeedLocation,
		},
		{
			name:       "stop id with line filter",
			plan:       Plan{StopID: "21245", Line: "5"},
			wantStopID: "21245",
			wantLines:  1,
			lineCalls:  []string{"21245"},
		},
		{
			name:       "stop id overrides first stop",
			plan:       Plan{Lat: ptr(32.08), Lon: ptr(34.78), FirstStop: true, StopID: "21245"},
			wantListed: true,
			wantStops:  4,
			wantChosen: "No id stop",
			wantStopID: "21245",
			wantLines:  2,
			lineCalls:  []string{"21245"},
		},
		{
			name:       "stop without realtime lines",
			plan:       Plan{StopID: "99999"},
			wantStopID: "99999",
			wantErr:    ErrNoRealtimeLines,
			lineCalls:  []string{"99999"},
		},
		{
			name:    "line without stop",
			plan:    Plan{Line: "5"},
			wantErr: ErrLineWithoutStop,
		},
		{
			name: "address only resolves the location",
			plan: Plan{Address: "Dizengoff"},

			geocodes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGeocoder{candidates: telAvivCandidates()}
			ln := &fakeLines{records: lineRecords()}
			s := newTestSession(g, &fakeStops{records: nearbyRecords()}, ln)

			res, err := Run(context.Background(), s, tt.plan)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.wantListed, res.StopsListed)
			assert.Len(t, res.Stops, tt.wantStops)
			if tt.wantChosen != "" {
				require.NotNil(t, res.Chosen)
				assert.Equal(t, tt.wantChosen, res.Chosen.Name)
			}
			assert.Equal(t, tt.wantStopID, res.StopID)
			assert.Len(t, res.Lines, tt.wantLines)
			assert.Len(t, g.queries, tt.geocodes)
			assert.Equal(t, tt.lineCalls, ln.calls)
		})
	}
}

func TestRunFirstStopWithNoStops(t *testing.T) {
	s := newTestSession(&fakeGeocoder{}, &fakeStops{}, &fakeLines{})

	res, err := Run(context.Background(), s, Plan{Lat: ptr(32.08), Lon: ptr(34.78), FirstStop: true})
	require.NoError(t, err)
	assert.True(t, res.StopsListed)
	assert.Nil(t, res.Chosen)
	assert.False(t, res.LinesQueried)

	res, err = Run(context.Background(), s, Plan{Lat: ptr(32.08), Lon: ptr(34.78), FirstStop: true, Line: "5"})
	assert.ErrorIs(t, err, ErrLineWithoutStop)
	assert.False(t, res.LinesQueried)
}

func TestRunUsesPlanRadius(t *testing.T) {
	st := &fakeStops{records: nearbyRecords()}
	s := newTestSession(&fakeGeocoder{}, st, &fakeLines{})

	res, err := Run(context.Background(), s, Plan{Lat: ptr(32.08), Lon: ptr(34.78), ListStops: true, Radius: 450})
	require.NoError(t, err)
	assert.Equal(t, []int{450}, st.radii)
	assert.Equal(t, 450, res.Radius)
}

func TestPlanEmpty(t *testing.T) {
	assert.True(t, Plan{}.Empty())
	assert.True(t, Plan{Radius: 500, LimitStops: 3}.Empty())
	assert.False(t, Plan{Line: "5"}.Empty())
	assert.False(t, Plan{Lat: ptr(1)}.Empty())
}
