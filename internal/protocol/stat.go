package protocol

import "loadgrid/internal/wire"

// RegisterStat tells the stat handler a stream intends to report a
// named stat for a job (spec §4.6 register-stat).
type RegisterStat struct {
	JobID    string
	StatName string
}

func EncodeRegisterStat(id int64, r RegisterStat) wire.Value {
	body := wire.Seq(wire.String(r.JobID), wire.String(r.StatName))
	return Encode(Envelope{ID: id, Type: TypeRegisterStat, Body: body})
}

func DecodeRegisterStat(body wire.Value) (RegisterStat, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return RegisterStat{}, protocolErrorf("malformed register-stat: %v", err)
	}
	jobID, _ := fieldString(body, 0)
	name, err := fieldString(body, 1)
	if err != nil {
		return RegisterStat{}, err
	}
	return RegisterStat{JobID: jobID, StatName: name}, nil
}

// StatSample is one per-thread sample within a report-stat message
// (spec §4.6). Interval and Value are meaningless when StatType is
// StatDone — see the dual-shape note on encodeStatSample.
type StatSample struct {
	ClientID string
	ThreadID int
	StatName string
	Interval int64
	StatType StatType
	Value    float64
}

// encodeStatSample renders one sample. "done" samples in the existing
// protocol omit the interval-number field entirely rather than sending
// a placeholder, so the with-interval and stat-done shapes have
// different arity; preserved here for wire compatibility (spec §4.6,
// §9 "possibly-buggy source behavior").
func encodeStatSample(s StatSample) wire.Value {
	if s.StatType == StatDone {
		return wire.Seq(
			wire.String(s.ClientID),
			wire.Int(int64(s.ThreadID)),
			wire.String(s.StatName),
			wire.Enum(int64(s.StatType)),
		)
	}
	return wire.Seq(
		wire.String(s.ClientID),
		wire.Int(int64(s.ThreadID)),
		wire.String(s.StatName),
		wire.Int(s.Interval),
		wire.Enum(int64(s.StatType)),
		wire.String(formatFloat(s.Value)),
	)
}

// decodeStatSample detects which of the two shapes a sample tuple uses
// by inspecting the tag of its fourth, first-variable-position field:
// enumerated means the stat-done shape (no interval), integer means
// the with-interval shape.
func decodeStatSample(v wire.Value) (StatSample, error) {
	n, err := v.Len()
	if err != nil || n < 4 {
		return StatSample{}, protocolErrorf("malformed stat sample: %v", err)
	}

	var s StatSample
	s.ClientID, _ = fieldString(v, 0)
	threadID, err := fieldInt(v, 1)
	if err != nil {
		return StatSample{}, err
	}
	s.ThreadID = int(threadID)
	s.StatName, _ = fieldString(v, 2)

	fourth, err := v.At(3)
	if err != nil {
		return StatSample{}, protocolErrorf("malformed stat sample: %v", err)
	}

	switch fourth.Tag {
	case wire.TagEnumerated:
		if n != 4 {
			return StatSample{}, protocolErrorf("stat-done sample has %d fields, want 4", n)
		}
		typ, err := fourth.Enum()
		if err != nil {
			return StatSample{}, err
		}
		s.StatType = StatType(typ)
	case wire.TagInteger:
		if n != 6 {
			return StatSample{}, protocolErrorf("with-interval sample has %d fields, want 6", n)
		}
		interval, err := fourth.Int()
		if err != nil {
			return StatSample{}, err
		}
		s.Interval = interval
		typ, err := fieldEnum(v, 4)
		if err != nil {
			return StatSample{}, err
		}
		s.StatType = StatType(typ)
		valStr, err := fieldString(v, 5)
		if err != nil {
			return StatSample{}, err
		}
		val, err := parseFloat(valStr)
		if err != nil {
			return StatSample{}, protocolErrorf("stat sample value: %v", err)
		}
		s.Value = val
	default:
		return StatSample{}, protocolErrorf("stat sample: unexpected shape tag %s", fourth.Tag)
	}
	return s, nil
}

// ReportStat carries a batch of per-thread samples for one job (spec
// §4.6 report-stat).
type ReportStat struct {
	JobID   string
	Samples []StatSample
}

func EncodeReportStat(id int64, r ReportStat) wire.Value {
	samples := make([]wire.Value, len(r.Samples))
	for i, s := range r.Samples {
		samples[i] = encodeStatSample(s)
	}
	body := wire.Seq(wire.String(r.JobID), wire.Seq(samples...))
	return Encode(Envelope{ID: id, Type: TypeReportStat, Body: body})
}

func DecodeReportStat(body wire.Value) (ReportStat, error) {
	n, err := body.Len()
	if err != nil || n != 2 {
		return ReportStat{}, protocolErrorf("malformed report-stat: %v", err)
	}
	jobID, err := fieldString(body, 0)
	if err != nil {
		return ReportStat{}, err
	}
	samplesV, err := body.At(1)
	if err != nil {
		return ReportStat{}, protocolErrorf("malformed report-stat samples: %v", err)
	}
	items, err := samplesV.Items()
	if err != nil {
		return ReportStat{}, protocolErrorf("malformed report-stat samples: %v", err)
	}
	samples := make([]StatSample, 0, len(items))
	for _, item := range items {
		s, err := decodeStatSample(item)
		if err != nil {
			return ReportStat{}, err
		}
		samples = append(samples, s)
	}
	return ReportStat{JobID: jobID, Samples: samples}, nil
}
