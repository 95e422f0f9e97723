package models

import (
	"errors"
	"testing"
	"time"
)

var ingestionTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseTelemetryEvent_Valid(t *testing.T) {
	raw := []byte(`{"vehicleId":"V1","latitude":10,"longitude":20}`)
	ev, err := ParseTelemetryEvent(raw, ingestionTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.VehicleID != "V1" || ev.Latitude != 10 || ev.Longitude != 20 {
		t.Fatalf("unexpected fields: %+v", ev)
	}
	if ev.Altitude != 0 {
		t.Fatalf("altitude should default to 0, got %v", ev.Altitude)
	}
	if !ev.Timestamp.Equal(ingestionTime) {
		t.Fatalf("timestamp should default to ingestion time, got %v", ev.Timestamp)
	}
	if ev.Speed != nil || ev.Heading != nil || ev.BatteryLevel != nil || ev.SatelliteCount != nil {
		t.Fatalf("absent optionals should stay nil: %+v", ev)
	}
	if len(ev.AdditionalFields) != 0 {
		t.Fatalf("additional fields should default to empty map: %+v", ev.AdditionalFields)
	}
}

func TestParseTelemetryEvent_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"latitude above range", `{"vehicleId":"V1","latitude":91,"longitude":0}`},
		{"latitude below range", `{"vehicleId":"V1","latitude":-90.5,"longitude":0}`},
		{"longitude above range", `{"vehicleId":"V1","latitude":0,"longitude":180.1}`},
		{"longitude below range", `{"vehicleId":"V1","latitude":0,"longitude":-181}`},
		{"missing latitude", `{"vehicleId":"V1","longitude":0}`},
		{"missing longitude", `{"vehicleId":"V1","latitude":0}`},
		{"missing vehicle id", `{"latitude":0,"longitude":0}`},
		{"blank vehicle id", `{"vehicleId":"   ","latitude":0,"longitude":0}`},
		{"not json", `telemetry?`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTelemetryEvent([]byte(tc.raw), ingestionTime)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestParseTelemetryEvent_OptionalFields(t *testing.T) {
	raw := []byte(`{"vehicleId":"V2","latitude":1,"longitude":2,"altitude":120.5,"speed":14.2,"heading":270,"batteryLevel":88,"satelliteCount":9,"timestamp":"2025-03-01T08:30:00Z"}`)
	ev, err := ParseTelemetryEvent(raw, ingestionTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Altitude != 120.5 {
		t.Fatalf("altitude: %v", ev.Altitude)
	}
	if ev.Speed == nil || *ev.Speed != 14.2 {
		t.Fatalf("speed: %v", ev.Speed)
	}
	if ev.SatelliteCount == nil || *ev.SatelliteCount != 9 {
		t.Fatalf("satelliteCount: %v", ev.SatelliteCount)
	}
	want := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Fatalf("timestamp: got %v want %v", ev.Timestamp, want)
	}
}

func TestParseTelemetryEvent_NegativeSatelliteCountDiscarded(t *testing.T) {
	raw := []byte(`{"vehicleId":"V1","latitude":0,"longitude":0,"satelliteCount":-3}`)
	ev, err := ParseTelemetryEvent(raw, ingestionTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.SatelliteCount != nil {
		t.Fatalf("negative satellite count should be discarded, got %v", *ev.SatelliteCount)
	}
}

func TestParseTelemetryEvent_UnparseableTimestampDefaults(t *testing.T) {
	raw := []byte(`{"vehicleId":"V1","latitude":0,"longitude":0,"timestamp":"yesterday-ish"}`)
	ev, err := ParseTelemetryEvent(raw, ingestionTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ev.Timestamp.Equal(ingestionTime) {
		t.Fatalf("unparseable timestamp should fall back to ingestion time, got %v", ev.Timestamp)
	}
}

func TestParseTelemetryEvent_AdditionalFields(t *testing.T) {
	raw := []byte(`{"vehicleId":"V1","latitude":0,"longitude":0,"additionalFields":{"armed":true,"retries":3,"temp":21.5,"mode":"loiter","gimbal":{"pitch":-45},"tags":["a","b"]}}`)
	ev, err := ParseTelemetryEvent(raw, ingestionTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, ok := ev.AdditionalFields["armed"].(bool); !ok || !v {
		t.Fatalf("armed: %v", ev.AdditionalFields["armed"])
	}
	if v, ok := ev.AdditionalFields["retries"].(float64); !ok || v != 3 {
		t.Fatalf("retries: %v", ev.AdditionalFields["retries"])
	}
	if v, ok := ev.AdditionalFields["mode"].(string); !ok || v != "loiter" {
		t.Fatalf("mode: %v", ev.AdditionalFields["mode"])
	}
	// Complex values degrade to their JSON text.
	if v, ok := ev.AdditionalFields["gimbal"].(string); !ok || v != `{"pitch":-45}` {
		t.Fatalf("gimbal should degrade to text, got %v", ev.AdditionalFields["gimbal"])
	}
	if v, ok := ev.AdditionalFields["tags"].(string); !ok || v != `["a","b"]` {
		t.Fatalf("tags should degrade to text, got %v", ev.AdditionalFields["tags"])
	}
}

func TestParseTelemetryEvent_NonObjectAdditionalFields(t *testing.T) {
	raw := []byte(`{"vehicleId":"V1","latitude":0,"longitude":0,"additionalFields":"not-an-object"}`)
	ev, err := ParseTelemetryEvent(raw, ingestionTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ev.AdditionalFields) != 0 {
		t.Fatalf("non-object additionalFields should degrade to empty map, got %+v", ev.AdditionalFields)
	}
}
