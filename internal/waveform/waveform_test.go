package waveform_test

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/GeoNet/kclass/internal/waveform"
)

// record builds a 512 byte big endian INT32 miniSEED record.
func record(sta, cha string, start time.Time, rate int16, samples []int32) []byte {
	b := make([]byte, 512)

	copy(b[0:6], "000001")
	b[6] = 'D'
	b[7] = ' '
	copy(b[8:13], pad(sta, 5))
	copy(b[13:15], pad("10", 2))
	copy(b[15:18], pad(cha, 3))
	copy(b[18:20], pad("NZ", 2))

	binary.BigEndian.PutUint16(b[20:22], uint16(start.Year()))
	binary.BigEndian.PutUint16(b[22:24], uint16(start.YearDay()))
	b[24] = uint8(start.Hour())
	b[25] = uint8(start.Minute())
	b[26] = uint8(start.Second())
	binary.BigEndian.PutUint16(b[28:30], uint16(start.Nanosecond()/100000))

	binary.BigEndian.PutUint16(b[30:32], uint16(len(samples)))
	binary.BigEndian.PutUint16(b[32:34], uint16(rate))
	binary.BigEndian.PutUint16(b[34:36], 1)
	b[39] = 1 // one blockette
	binary.BigEndian.PutUint16(b[44:46], 64)
	binary.BigEndian.PutUint16(b[46:48], 48)

	// blockette 1000
	binary.BigEndian.PutUint16(b[48:50], 1000)
	binary.BigEndian.PutUint16(b[50:52], 0)
	b[52] = 3 // INT32
	b[53] = 1 // big endian
	b[54] = 9 // 2^9 = 512

	for i, v := range samples {
		binary.BigEndian.PutUint32(b[64+i*4:], uint32(v))
	}

	return b
}

func pad(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}

func TestDecode(t *testing.T) {
	start := time.Date(2024, time.March, 19, 10, 30, 1, 500*1000000, time.UTC)

	r, err := waveform.Decode(record("WEL", "HHZ", start, 100, []int32{1, -2, 3}))
	if err != nil {
		t.Fatal(err)
	}

	exp := waveform.Record{
		Network:    "NZ",
		Station:    "WEL",
		Location:   "10",
		Channel:    "HHZ",
		Start:      start,
		SampleRate: 100,
		Samples:    []float64{1, -2, 3},
	}

	if !reflect.DeepEqual(exp, r) {
		t.Errorf("expected %+v got %+v", exp, r)
	}

	if r.SrcName() != "NZ_WEL_10_HHZ" {
		t.Errorf("expected NZ_WEL_10_HHZ got %s", r.SrcName())
	}

	if r.StationKey() != "NZ_WEL_10" {
		t.Errorf("expected NZ_WEL_10 got %s", r.StationKey())
	}

	if !r.End().Equal(start.Add(20 * time.Millisecond)) {
		t.Errorf("unexpected end time %s", r.End())
	}
}

func TestDecodeShort(t *testing.T) {
	if _, err := waveform.Decode(make([]byte, 20)); err == nil {
		t.Error("expected error for short record")
	}
}

func TestReadRecords(t *testing.T) {
	start := time.Date(2024, time.March, 19, 10, 30, 0, 0, time.UTC)

	var b bytes.Buffer
	b.Write(record("WEL", "HHN", start, 100, []int32{1, 2}))
	b.Write(record("WEL", "HHE", start, 100, []int32{3, 4}))
	b.Write(record("WEL", "LOG", start, 0, nil))

	recs, err := waveform.ReadRecords(&b)
	if err != nil {
		t.Fatal(err)
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 records got %d", len(recs))
	}

	if recs[0].Channel != "HHN" || recs[1].Channel != "HHE" {
		t.Errorf("unexpected channels %s %s", recs[0].Channel, recs[1].Channel)
	}
}

func TestFollows(t *testing.T) {
	start := time.Date(2024, time.March, 19, 10, 30, 0, 0, time.UTC)

	a := waveform.Record{Start: start, SampleRate: 10, Samples: make([]float64, 10)}

	in := []struct {
		id string
		r  waveform.Record
		ok bool
	}{
		{id: loc(), r: waveform.Record{Start: start.Add(time.Second), SampleRate: 10}, ok: true},
		{id: loc(), r: waveform.Record{Start: start.Add(time.Second + 40*time.Millisecond), SampleRate: 10}, ok: true},
		{id: loc(), r: waveform.Record{Start: start.Add(2 * time.Second), SampleRate: 10}, ok: false},
		{id: loc(), r: waveform.Record{Start: start.Add(time.Second), SampleRate: 20}, ok: false},
	}

	for _, v := range in {
		if v.r.Follows(a) != v.ok {
			t.Errorf("%s expected follows %t", v.id, v.ok)
		}
	}
}

func loc() string {
	_, _, l, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(l)
}
