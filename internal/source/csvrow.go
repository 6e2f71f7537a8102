package source

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// csvColumns are the required columns of a blob's CSV body, matching the
// raw-row shape spec.md §6 defines for the source adapter contract.
var csvColumns = []string{"message_type", "ntp_timestamp", "ntp_ok", "eke_timestamp", "mqtt_timestamp", "mqtt_topic", "raw_data"}

// vehicleTopicSegment mirrors internal/broker's topic parsing: vehicle
// key = topic segment index 3 (spec.md §3).
const vehicleTopicSegment = 3

// readCSVRows decodes one blob's CSV body into raw rows. Rows with an
// unparseable timestamp or hex payload are skipped without being
// reported, not treated as fatal — a single malformed row must not drop
// the rest of a day's blob.
func readCSVRows(r io.Reader, defaultVehicle string) ([]eke.RawRow, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, want := range csvColumns {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("CSV blob missing required column %q", want)
		}
	}

	var rows []eke.RawRow
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading CSV row: %w", err)
		}

		mqttTs, err := parseUnixSeconds(rec[col["mqtt_timestamp"]])
		if err != nil {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimSpace(rec[col["raw_data"]]))
		if err != nil {
			continue
		}

		topic := rec[col["mqtt_topic"]]
		vehicle := vehicleFromTopic(topic)
		if vehicle == "" {
			vehicle = defaultVehicle
		}

		rows = append(rows, eke.RawRow{
			Vehicle:       vehicle,
			MqttTopic:     topic,
			MqttTimestamp: mqttTs,
			Raw:           append([]byte(nil), raw...),
		})
	}
	return rows, nil
}

func parseUnixSeconds(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	secs := int64(f)
	nanos := int64((f - float64(secs)) * 1e9)
	return time.Unix(secs, nanos).UTC(), nil
}

func vehicleFromTopic(topic string) string {
	segments := strings.Split(topic, "/")
	if len(segments) > vehicleTopicSegment {
		return segments[vehicleTopicSegment]
	}
	return ""
}
