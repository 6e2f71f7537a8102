package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// row is one raw balise,direction,station,track,type,train_direction CSV
// record, kept around during the reverse-direction synthesis pass below.
type row struct {
	balise         string
	direction      string
	station        string
	track          int
	rowType        string
	trainDirection string
}

func (r row) key() string {
	return r.balise + "_" + r.direction
}

func (r row) entry() Entry {
	return Entry{Station: r.station, Track: r.track, Type: r.rowType, TrainDirection: r.trainDirection}
}

func opposite(direction string) string {
	if direction == "1" {
		return "2"
	}
	return "1"
}

func oppositeType(t string) string {
	if t == "DEPARTURE" {
		return "ARRIVAL"
	}
	return "DEPARTURE"
}

// LoadCSV reads a balise registry CSV (header: balise,direction,station,
// track,type,train_direction) and synthesizes the reverse-direction entry
// for any (balise, direction) pair whose opposite direction is missing.
// Synthesis is skipped when another row already has the synthesized
// station, track, type and train_direction; such a balise then resolves
// in its listed direction only.
func LoadCSV(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening balise registry %q: %w", path, err)
	}
	defer f.Close()
	return loadCSV(f)
}

func loadCSV(r io.Reader) (*Registry, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading balise registry header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"balise", "direction", "station", "track", "type", "train_direction"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("balise registry missing required column %q", required)
		}
	}

	rows := make(map[string]row)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading balise registry row: %w", err)
		}
		track, err := strconv.Atoi(rec[col["track"]])
		if err != nil {
			return nil, fmt.Errorf("parsing track for balise %q: %w", rec[col["balise"]], err)
		}
		rw := row{
			balise:         rec[col["balise"]],
			direction:      rec[col["direction"]],
			station:        rec[col["station"]],
			track:          track,
			rowType:        rec[col["type"]],
			trainDirection: rec[col["train_direction"]],
		}
		rows[rw.key()] = rw
	}

	// station_track_type_train_direction combinations already present,
	// used to avoid synthesizing a duplicate of real registry data.
	dataSet := make(map[string]struct{}, len(rows))
	for _, rw := range rows {
		dataSet[fmt.Sprintf("%s_%d_%s_%s", rw.station, rw.track, rw.rowType, rw.trainDirection)] = struct{}{}
	}

	original := make([]row, 0, len(rows))
	for _, rw := range rows {
		original = append(original, rw)
	}

	for _, rw := range original {
		oppDir := opposite(rw.direction)
		oppKey := rw.balise + "_" + oppDir

		if _, exists := rows[oppKey]; exists {
			continue
		}

		synth := rw
		synth.direction = oppDir
		synth.rowType = oppositeType(rw.rowType)
		synth.trainDirection = opposite(rw.trainDirection)

		dataKey := fmt.Sprintf("%s_%d_%s_%s", synth.station, synth.track, synth.rowType, synth.trainDirection)
		if _, exists := dataSet[dataKey]; exists {
			continue
		}
		synth.trainDirection += "_g"
		rows[oppKey] = synth
	}

	entries := make(map[string]Entry, len(rows))
	for key, rw := range rows {
		entries[key] = rw.entry()
	}
	return New(entries), nil
}
