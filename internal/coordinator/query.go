package coordinator

import (
	"context"
	"fmt"
	"sort"

	"loadgrid/internal/job"
	"loadgrid/internal/session"
)

// ClientSummary is a snapshot row for one of the sorted_*_clients()
// admin queries (spec §6).
type ClientSummary struct {
	ConnID   int64
	ClientID string
	IP       string
}

func summarize(sessions []*session.Session) []ClientSummary {
	out := make([]ClientSummary, len(sessions))
	for i, s := range sessions {
		out[i] = ClientSummary{ConnID: s.ConnID, ClientID: s.ClientID, IP: s.IP()}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

// SortedLoadClients implements the sorted_load_clients() admin query.
func (c *Coordinator) SortedLoadClients() []ClientSummary {
	return summarize(c.loadPool.Snapshot())
}

// SortedMonitorClients implements the sorted_monitor_clients() admin
// query.
func (c *Coordinator) SortedMonitorClients() []ClientSummary {
	return summarize(c.monitorReg.Snapshot())
}

// SortedStatClients implements the sorted_stat_clients() admin query.
func (c *Coordinator) SortedStatClients() []ClientSummary {
	return summarize(c.statListen.Snapshot())
}

// SortedManagers implements the sorted_managers() admin query.
func (c *Coordinator) SortedManagers() []ClientSummary {
	managers := c.managerReg.Snapshot()
	sessions := make([]*session.Session, len(managers))
	for i, m := range managers {
		sessions[i] = m.Session
	}
	return summarize(sessions)
}

// findByClientID scans every load session for a matching client-ID;
// load sessions are the only population admin disconnect targets
// (spec §6 "request_disconnect(client-id) / force_disconnect(client-id)
// per listener").
func (c *Coordinator) findByClientID(clientID string) (*session.Session, bool) {
	for _, s := range c.loadPool.Snapshot() {
		if s.ClientID == clientID {
			return s, true
		}
	}
	return nil, false
}

// RequestDisconnect implements request_disconnect(client-id): a
// graceful shutdown that drains any in-progress job first.
func (c *Coordinator) RequestDisconnect(ctx context.Context, clientID string) error {
	s, ok := c.findByClientID(clientID)
	if !ok {
		return fmt.Errorf("coordinator: no client %q", clientID)
	}
	return s.Shutdown(ctx, true)
}

// ForceDisconnect implements force_disconnect(client-id): closes the
// socket immediately without draining (spec §6, scenario S6).
func (c *Coordinator) ForceDisconnect(clientID string) error {
	s, ok := c.findByClientID(clientID)
	if !ok {
		return fmt.Errorf("coordinator: no client %q", clientID)
	}
	s.Stop()
	return s.Close()
}

// ConnectionsAvailableFor implements connections_available_for(job):
// how many load sessions are currently eligible, without committing
// to a cohort.
func (c *Coordinator) ConnectionsAvailableFor(j job.Job) int {
	return len(c.loadPool.Snapshot())
}

// GetCohortForJob implements get_cohort_for(job): atomically resolves
// both the load cohort and (if the job names monitor requirements or
// colocation) the monitor cohort.
func (c *Coordinator) GetCohortForJob(j job.Job) (loadCohort, monitorCohort []*session.Session, err error) {
	loadCohort, err = c.loadPool.GetCohort(j)
	if err != nil {
		return nil, nil, err
	}
	if len(j.RequiredMonitorIPs) == 0 && !j.ColocateMonitors {
		return loadCohort, nil, nil
	}
	monitorCohort, err = c.monitorReg.Cohort(j, loadCohort)
	if err != nil {
		return nil, nil, err
	}
	return loadCohort, monitorCohort, nil
}

// StatNames implements stat_names(job).
func (c *Coordinator) StatNames(jobID job.ID) []string {
	return c.statListen.Store().StatNames(jobID)
}

// StatValues implements stat_values(job, stat).
func (c *Coordinator) StatValues(jobID job.ID, stat string) ([]float64, bool) {
	return c.statListen.Store().Values(jobID, stat)
}

// FirstInterval implements first_interval(job, stat).
func (c *Coordinator) FirstInterval(jobID job.ID, stat string) (int64, bool) {
	return c.statListen.Store().FirstInterval(jobID, stat)
}
