package gtfs

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testBundleFiles is a minimal feed around Dizengoff Square, Tel Aviv.
// Distances from (32.0778, 34.7741): S1 ~15 m, 21245 ~39 m, 21212 ~245 m,
// 24771 ~890 m.
var testBundleFiles = map[string]string{
	"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
		"5,Dan,https://www.dan.co.il,Asia/Jerusalem\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"R5,5,5,Central Station - Dizengoff,3\n",
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WEEK,1,1,1,1,1,0,1,20240101,20240630\n" +
		"SAT,0,0,0,0,0,1,0,20240101,20241231\n",
	"trips.txt": "route_id,service_id,trip_id\n" +
		"R5,WEEK,T1\n" +
		"R5,SAT,T2\n",
	"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon\n" +
		"S1,,Dizengoff Square Platform,32.0777,34.7740\n" +
		"100,21245,Dizengoff Square,32.0779,34.7745\n" +
		"101,21212,Dizengoff/Frishman,32.0800,34.7741\n" +
		"102,24771,Ben Yehuda/Gordon,32.0850,34.7700\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,10:00:00,10:00:00,100,1\n" +
		"T1,10:03:00,10:03:00,101,2\n" +
		"T1,10:06:00,10:06:00,102,3\n" +
		"T2,11:00:00,11:00:00,S1,1\n" +
		"T2,11:04:00,11:04:00,101,2\n",
}

func buildTestBundle(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range testBundleFiles {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeTestBundle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(path, buildTestBundle(t), 0o600))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
