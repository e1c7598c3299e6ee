// Package location implements location memory: the asymptotic familiarity
// curve, activity-type inference (activity.go), co-access associations,
// passive decay, orphan detection, and rename/merge bookkeeping.
//
// Grounded on bud2's entity-alias merge pattern (internal/graph handles
// renaming/merging entities that turn out to name the same thing) adapted
// from entities to filesystem locations, and on its access-bookkeeping
// idiom (an access count plus a derived scalar) generalized to the
// familiarity curve.
package location

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"

	"github.com/vthunder/cogmem/internal/cogerr"
	"github.com/vthunder/cogmem/internal/store"
	"github.com/vthunder/cogmem/internal/types"
)

// DecayConfig tunes the passive-decay sweep.
type DecayConfig struct {
	DecayFactor     float64
	StickyThreshold float64
	Floor           float64
	WellKnownFloor  float64
	StaleThreshold  time.Duration
}

// DefaultDecayConfig returns the documented default decay tuning.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		DecayFactor:     0.1,
		StickyThreshold: 0.8,
		Floor:           0.1,
		WellKnownFloor:  0.4,
		StaleThreshold:  30 * 24 * time.Hour,
	}
}

const (
	familiarityAlpha      = 0.1
	wellKnownThreshold    = 0.7
	orphanMinFamiliarity  = 0.4
	orphanStaleThreshold  = 60 * 24 * time.Hour
	coAccessWindow        = time.Hour
)

// Manager is the location-memory API surface.
type Manager struct {
	db     *store.DB
	decay  DecayConfig
}

// New constructs a location Manager.
func New(db *store.DB, decay DecayConfig) *Manager {
	return &Manager{db: db, decay: decay}
}

// Familiarity computes the asymptotic familiarity curve for n accesses:
// f(n) = 1 - 1/(1 + alpha*n).
func Familiarity(accessCount int) float64 {
	return 1 - 1/(1+familiarityAlpha*float64(accessCount))
}

// Record logs an access to path (creating the Location if new), bumps its
// access count and familiarity, and appends an access context. When task is
// non-empty it also reinforces co-access associations with every other
// recent location that shares the task or was accessed within the
// co-access window; an access without a task reinforces nothing.
func (m *Manager) Record(projectID, path, description string, direct bool, explicit types.ActivityType, context, tool, task string) (*types.Location, error) {
	loc, err := m.db.GetLocationByPath(path, projectID)
	now := time.Now()
	if err != nil {
		if isNotFound(err) {
			loc = &types.Location{
				ID:          locationID(projectID, path),
				Path:        path,
				ProjectID:   projectID,
				Description: description,
			}
			if err := m.db.CreateLocation(loc); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	loc.AccessCount++
	loc.LastAccessed = now
	loc.Familiarity = Familiarity(loc.AccessCount)
	if loc.Familiarity >= m.decay.StickyThreshold {
		loc.EverWellKnown = true
	}
	if direct {
		loc.DirectAccessCount++
	} else {
		loc.SearchSavedCount++
	}
	if description != "" {
		loc.Description = description
	}
	if err := m.db.UpdateLocation(loc); err != nil {
		return nil, err
	}

	activity := InferActivity(explicit, context, tool)
	if err := m.db.RecordLocationAccessContext(&types.LocationAccessContext{
		LocationID:   loc.ID,
		Context:      context,
		Activity:     activity,
		DirectAccess: direct,
		Task:         task,
		Timestamp:    now,
	}); err != nil {
		return nil, err
	}

	if task != "" {
		if err := m.reinforceCoAccess(loc, task, activity, now); err != nil {
			return nil, err
		}
	}

	return loc, nil
}

// reinforceCoAccess strengthens the association between loc and every
// other location touched under the same task, or within the co-access
// time window, as the current access. Locations sharing neither are not
// considered co-accessed and are skipped entirely.
func (m *Manager) reinforceCoAccess(loc *types.Location, task string, activity types.ActivityType, now time.Time) error {
	recent, err := m.db.RecentLocations(loc.ProjectID, 50)
	if err != nil {
		return err
	}
	for _, other := range recent {
		if other.ID == loc.ID {
			continue
		}
		sameWindow := now.Sub(other.LastAccessed) <= coAccessWindow

		contexts, err := m.db.LocationAccessContexts(other.ID, 5)
		if err != nil {
			return err
		}
		var sameTask, sameActivity bool
		for _, c := range contexts {
			if c.Task != "" && c.Task == task {
				sameTask = true
			}
			if c.Activity == activity {
				sameActivity = true
			}
		}

		if !sameTask && !sameWindow {
			continue
		}
		strength := coAccessStrength(sameTask, sameActivity)
		if err := m.db.AssociateLocations(loc.ID, other.ID, strength); err != nil {
			return err
		}
	}
	return nil
}

func coAccessStrength(sameTask, sameActivity bool) float64 {
	switch {
	case sameTask && sameActivity:
		return 0.20
	case sameTask:
		return 0.15
	case sameActivity:
		return 0.10
	default:
		return 0.05
	}
}

// Get loads a location by ID.
func (m *Manager) Get(id string) (*types.Location, error) {
	return m.db.GetLocation(id)
}

// Find returns locations in project whose path contains substr.
func (m *Manager) Find(projectID, substr string) ([]*types.Location, error) {
	all, err := m.db.ListLocations(projectID)
	if err != nil {
		return nil, err
	}
	var out []*types.Location
	for _, l := range all {
		if containsPath(l.Path, substr) {
			out = append(out, l)
		}
	}
	return out, nil
}

func containsPath(path, substr string) bool {
	if substr == "" {
		return true
	}
	return indexOf(path, substr) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// All returns every location in a project.
func (m *Manager) All(projectID string) ([]*types.Location, error) {
	return m.db.ListLocations(projectID)
}

// Recent returns the n most recently accessed locations in a project.
func (m *Manager) Recent(projectID string, n int) ([]*types.Location, error) {
	return m.db.RecentLocations(projectID, n)
}

// Stats summarizes a project's location memory.
type Stats struct {
	TotalLocations int
	WellKnown      int
	Pinned         int
}

// Stats computes summary counters for a project.
func (m *Manager) Stats(projectID string) (Stats, error) {
	all, err := m.db.ListLocations(projectID)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	s.TotalLocations = len(all)
	for _, l := range all {
		if l.Familiarity >= wellKnownThreshold {
			s.WellKnown++
		}
		if l.Pinned {
			s.Pinned++
		}
	}
	return s, nil
}

// Contexts returns the access-context history for a location.
func (m *Manager) Contexts(locationID string, limit int) ([]*types.LocationAccessContext, error) {
	return m.db.LocationAccessContexts(locationID, limit)
}

// Associated returns the locations associated with the location at path,
// ordered by association strength descending. The location-graph analog
// of spreading, but without a probe-similarity factor.
func (m *Manager) Associated(projectID, path string) ([]types.AssociatedLocation, error) {
	seed, err := m.db.GetLocationByPath(path, projectID)
	if err != nil {
		return nil, err
	}
	edges, err := m.db.LocationAssociationsFor(seed.ID)
	if err != nil {
		return nil, err
	}

	out := make([]types.AssociatedLocation, 0, len(edges))
	for _, e := range edges {
		otherID := e.TargetID
		if otherID == seed.ID {
			otherID = e.SourceID
		}
		other, err := m.db.GetLocation(otherID)
		if err != nil {
			continue
		}
		out = append(out, types.AssociatedLocation{Location: other, Strength: e.Strength, Familiarity: other.Familiarity})
	}
	sortAssociatedByStrength(out)
	return out, nil
}

func sortAssociatedByStrength(locs []types.AssociatedLocation) {
	for i := 1; i < len(locs); i++ {
		for j := i; j > 0 && locs[j].Strength > locs[j-1].Strength; j-- {
			locs[j], locs[j-1] = locs[j-1], locs[j]
		}
	}
}

// ByActivity returns locations with at least one access of the given
// activity type.
func (m *Manager) ByActivity(projectID string, activity types.ActivityType) ([]*types.Location, error) {
	return m.db.LocationsByActivity(string(activity), projectID)
}

// Pin marks a location pinned, excluding it from decay and orphan
// detection.
func (m *Manager) Pin(id string) error {
	loc, err := m.db.GetLocation(id)
	if err != nil {
		return err
	}
	loc.Pinned = true
	return m.db.UpdateLocation(loc)
}

// Unpin clears a location's pinned flag.
func (m *Manager) Unpin(id string) error {
	loc, err := m.db.GetLocation(id)
	if err != nil {
		return err
	}
	loc.Pinned = false
	return m.db.UpdateLocation(loc)
}

// Decay runs the passive familiarity decay sweep (§4.5), returning the
// number of locations changed. Idempotent within the stale window: running
// it twice without an intervening access yields no further change.
func (m *Manager) Decay() (int, error) {
	locs, err := m.db.AllLocationsAcrossProjects()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	changed := 0
	for _, l := range locs {
		if l.Pinned {
			continue
		}
		if now.Sub(l.LastAccessed) < m.decay.StaleThreshold {
			continue
		}

		floor := m.decay.Floor
		if l.EverWellKnown {
			floor = m.decay.WellKnownFloor
		}
		next := l.Familiarity * (1 - m.decay.DecayFactor)
		if next < floor {
			next = floor
		}
		if next == l.Familiarity {
			continue
		}
		l.Familiarity = next
		if err := m.db.UpdateLocation(l); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// Orphaned returns locations that are well-known but have gone unvisited
// past the stale threshold, excluding pinned ones.
func (m *Manager) Orphaned(projectID string) ([]*types.Location, error) {
	all, err := m.db.ListLocations(projectID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []*types.Location
	for _, l := range all {
		if l.Pinned {
			continue
		}
		if l.Familiarity >= orphanMinFamiliarity && now.Sub(l.LastAccessed) >= orphanStaleThreshold {
			out = append(out, l)
		}
	}
	return out, nil
}

// Merge implements rename merging: if only oldPath exists, it is renamed
// to newPath (preserving counters and associations). If both exist, their
// counters, familiarity, associations, and contexts are combined and
// oldPath is deleted. Returns nil (not an error) if neither path is known.
func (m *Manager) Merge(projectID, oldPath, newPath string) (*types.Location, error) {
	oldLoc, oldErr := m.db.GetLocationByPath(oldPath, projectID)
	newLoc, newErr := m.db.GetLocationByPath(newPath, projectID)

	oldExists := oldErr == nil
	newExists := newErr == nil

	switch {
	case !oldExists && !newExists:
		return nil, nil
	case oldExists && !newExists:
		oldLoc.Path = newPath
		if err := m.renameLocation(oldLoc); err != nil {
			return nil, err
		}
		return oldLoc, nil
	case !oldExists && newExists:
		return newLoc, nil
	default:
		newLoc.AccessCount += oldLoc.AccessCount
		if oldLoc.Familiarity > newLoc.Familiarity {
			newLoc.Familiarity = oldLoc.Familiarity
		}
		newLoc.DirectAccessCount += oldLoc.DirectAccessCount
		newLoc.SearchSavedCount += oldLoc.SearchSavedCount
		newLoc.EverWellKnown = newLoc.EverWellKnown || oldLoc.EverWellKnown
		if err := m.db.UpdateLocation(newLoc); err != nil {
			return nil, err
		}
		if err := m.db.RetargetLocationAssociations(oldLoc.ID, newLoc.ID); err != nil {
			return nil, err
		}
		if err := m.mergeContexts(oldLoc.ID, newLoc.ID); err != nil {
			return nil, err
		}
		return newLoc, nil
	}
}

func (m *Manager) renameLocation(loc *types.Location) error {
	return m.db.UpdateLocationPath(loc)
}

func (m *Manager) mergeContexts(fromID, toID string) error {
	contexts, err := m.db.LocationAccessContexts(fromID, 1<<30)
	if err != nil {
		return err
	}
	for _, c := range contexts {
		c.LocationID = toID
		c.ID = 0
		if err := m.db.RecordLocationAccessContext(c); err != nil {
			return err
		}
	}
	return m.db.DeleteLocation(fromID)
}

func isNotFound(err error) bool {
	return errors.Is(err, cogerr.ErrNotFound)
}

// locationID derives a stable, content-addressed ID from a location's
// natural key by hashing it with BLAKE3 rather than minting a random one.
// Two processes recording the same (project, path) concurrently converge
// on the same location row instead of racing to create duplicates.
func locationID(projectID, path string) string {
	hash := blake3.Sum256([]byte(projectID + "\x00" + path))
	return hex.EncodeToString(hash[:])
}
