package mission

import (
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agribotlabs/agribot/internal/model/entities"
)

// Assembler drives the coverage generator across all zones of a prescription
// and assembles the mission artifact.
type Assembler struct {
	cfg CoverageConfig
}

func NewAssembler(cfg CoverageConfig) *Assembler {
	return &Assembler{cfg: cfg.withDefaults()}
}

// Generate never fails as a whole: per-zone geometry errors are recorded in
// the mission and demote its status to draft, so the caller can see which
// zones need correction while every healthy sibling still gets its path.
//
// Zone computations share nothing but read-only zone data, so they run
// through a bounded errgroup when there is more than one zone.
func (a *Assembler) Generate(p *entities.Prescription) *entities.Mission {
	now := time.Now().UTC()

	type result struct {
		idx int
		zm  entities.ZoneMission
		err error
	}
	results := make([]result, len(p.Zones))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, zone := range p.Zones {
		g.Go(func() error {
			zm, err := GeneratePath(zone, a.cfg)
			results[i] = result{idx: i, zm: zm, err: err}
			return nil // zone failures are data, not group failures
		})
	}
	_ = g.Wait()

	m := &entities.Mission{
		ID:             missionID(p.ID, now),
		PrescriptionID: p.ID,
		FieldID:        p.FieldID,
		GeneratedAt:    now,
		ZoneMissions:   make([]entities.ZoneMission, 0, len(p.Zones)),
	}

	for _, r := range results {
		if r.err != nil {
			m.ZoneErrors = append(m.ZoneErrors, entities.ZoneError{
				ZoneID: p.Zones[r.idx].ID,
				Error:  r.err.Error(),
			})
			continue
		}
		m.ZoneMissions = append(m.ZoneMissions, r.zm)
	}
	sort.SliceStable(m.ZoneErrors, func(i, j int) bool {
		return m.ZoneErrors[i].ZoneID < m.ZoneErrors[j].ZoneID
	})

	// aggregates sum over successfully generated zone missions only
	for _, zm := range m.ZoneMissions {
		m.Metadata.TotalZones++
		m.Metadata.TotalWaypoints += zm.Stats.NumWaypoints
		m.Metadata.TotalAreaHa += zm.ZoneAreaHa
		m.Metadata.EstTotalDurations += zm.Stats.EstimatedDurationMin
	}

	if len(m.ZoneErrors) == 0 {
		m.Status = entities.MissionReady
	} else {
		m.Status = entities.MissionDraft
	}
	return m
}

var missionSeq atomic.Uint64

// missionID is derived from the prescription and the generation wall clock,
// plus a process-local sequence so regenerations within the same second still
// get distinct ids without external coordination.
func missionID(prescriptionID string, t time.Time) string {
	return fmt.Sprintf("AGR-%s-%s-%04d", prescriptionID, t.Format("20060102-150405"), missionSeq.Add(1)%10000)
}
