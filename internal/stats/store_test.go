package stats

import (
	"testing"

	"loadgrid/internal/job"
	"loadgrid/internal/protocol"
)

func TestRegisterDropsUnknownJob(t *testing.T) {
	st := NewStore(3)
	st.JobKnown = func(job.ID) bool { return false }

	st.Register("job-1", "cpu")
	if st.jobCount() != 0 {
		t.Fatalf("expected no JobStats created for unknown job, got %d", st.jobCount())
	}
}

func TestRegisterCreatesSeriesAndIncrementsRefCount(t *testing.T) {
	st := NewStore(3)
	st.Register("job-1", "cpu")
	st.Register("job-1", "cpu")

	names := st.StatNames("job-1")
	if len(names) != 1 || names[0] != "cpu" {
		t.Fatalf("stat names = %v, want [cpu]", names)
	}
}

func TestReportDoneRemovesSeriesAtZeroRefCount(t *testing.T) {
	st := NewStore(3)
	st.Register("job-1", "cpu")
	st.Register("job-1", "cpu")

	st.Report("job-1", []protocol.StatSample{{StatName: "cpu", StatType: protocol.StatDone}})
	if names := st.StatNames("job-1"); len(names) != 1 {
		t.Fatalf("series removed after one of two DONE, names = %v", names)
	}

	st.Report("job-1", []protocol.StatSample{{StatName: "cpu", StatType: protocol.StatDone}})
	if names := st.StatNames("job-1"); len(names) != 0 {
		t.Fatalf("series should be gone after second DONE, names = %v", names)
	}
	if st.jobCount() != 0 {
		t.Fatalf("JobStats should be removed once it has no series left, jobCount = %d", st.jobCount())
	}
}

func TestReportAddAccumulatesIntoSeries(t *testing.T) {
	st := NewStore(3)
	st.Register("job-1", "cpu")

	st.Report("job-1", []protocol.StatSample{
		{StatName: "cpu", StatType: protocol.StatAdd, Interval: 0, Value: 4},
		{StatName: "cpu", StatType: protocol.StatAdd, Interval: 0, Value: 6},
	})

	values, ok := st.Values("job-1", "cpu")
	if !ok {
		t.Fatal("expected series to exist")
	}
	if len(values) != 1 || values[0] != 10 {
		t.Fatalf("values = %v, want [10]", values)
	}
}

func TestReportIgnoresUnregisteredStatName(t *testing.T) {
	st := NewStore(3)
	st.Register("job-1", "cpu")

	st.Report("job-1", []protocol.StatSample{
		{StatName: "memory", StatType: protocol.StatAdd, Interval: 0, Value: 1},
	})

	if _, ok := st.Values("job-1", "memory"); ok {
		t.Fatal("unregistered stat name must not create a series")
	}
}
