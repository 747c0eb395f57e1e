package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/platform/metrics"
	"collection-route-service/internal/platform/obs"
	"collection-route-service/internal/ports"
	"context"
	"fmt"
	"time"
)

type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeNothingToGenerate  Outcome = "nothing_to_generate"
	OutcomePackingFailure     Outcome = "packing_failure"
	OutcomeOracleFailure      Outcome = "oracle_failure"
	OutcomePersistenceFailure Outcome = "persistence_failure"
)

// GenerationResult is the single result of one generation attempt.
// Route and Plans are set only on success; Err explains the two failure outcomes.
type GenerationResult struct {
	Outcome Outcome
	Route   *domain.Route
	Plans   []*domain.TruckPlan
	Err     error
}

func (r GenerationResult) OK() bool { return r.Outcome == OutcomeSuccess }

// Evaluation reports what the threshold policy decided for a zone and what was done about it.
type Evaluation struct {
	Zone       domain.Zone
	Decision   Decision
	Input      PolicyInput
	Generation *GenerationResult
}

type LifecycleDeps struct {
	Store     ports.Store
	Config    ports.ConfigProvider
	Sequencer *RouteSequencer
	Sink      ports.NotificationSink
	Log       logger.Logger
	Metrics   *metrics.Recorder
	Now       func() time.Time
}

// Lifecycle owns route generation and the Route, Assignment, Incident and Driver
// state machines. Generation work is serialised per zone; start/finish/cancel per assignment,
// and assigning or starting per driver.
type Lifecycle struct {
	store     ports.Store
	policy    *ThresholdPolicy
	sequencer *RouteSequencer
	sink      ports.NotificationSink
	log       logger.Logger
	metrics   *metrics.Recorder
	now       func() time.Time

	zones       *KeyedMutex[domain.Zone]
	assignments *KeyedMutex[int64]
	drivers     *KeyedMutex[int64]
}

func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	l := &Lifecycle{
		store:       deps.Store,
		policy:      NewThresholdPolicy(deps.Config),
		sequencer:   deps.Sequencer,
		sink:        deps.Sink,
		log:         deps.Log,
		metrics:     deps.Metrics,
		now:         deps.Now,
		zones:       NewKeyedMutex[domain.Zone](),
		assignments: NewKeyedMutex[int64](),
		drivers:     NewKeyedMutex[int64](),
	}
	if l.log == nil {
		l.log = logger.Nop{}
	}
	if l.now == nil {
		l.now = func() time.Time { return time.Now().UTC() }
	}
	return l
}

// Generate builds and persists a new route for zone from its generation pool.
func (l *Lifecycle) Generate(ctx context.Context, zone domain.Zone) GenerationResult {
	unlock := l.zones.Lock(zone)
	defer unlock()
	return l.generate(ctx, zone, l.now())
}

// Recalculate soft-cancels every planned route of zone, releases its incidents and
// generates a replacement over the enlarged pool.
func (l *Lifecycle) Recalculate(ctx context.Context, zone domain.Zone, reason string) GenerationResult {
	unlock := l.zones.Lock(zone)
	defer unlock()
	return l.recalculate(ctx, zone, reason, l.now())
}

// Evaluate runs the threshold policy for zone and acts on its decision.
// trigger is the incident that was just validated, or nil for a periodic check.
func (l *Lifecycle) Evaluate(ctx context.Context, zone domain.Zone, trigger *domain.Incident) (ev Evaluation, err error) {
	defer obs.Time(ctx, "evaluate_zone")(&err)

	unlock := l.zones.Lock(zone)
	defer unlock()

	decision, in, err := l.policy.Decide(ctx, l.store, zone, trigger)
	if err != nil {
		return Evaluation{Zone: zone}, fmt.Errorf("evaluate zone %s: %w", zone, err)
	}
	l.metrics.Decision(string(zone), decision.String())

	ev = Evaluation{Zone: zone, Decision: decision, Input: in}
	switch decision {
	case DecisionGenerate:
		res := l.generate(ctx, zone, l.now())
		ev.Generation = &res
	case DecisionRecalculate:
		res := l.recalculate(ctx, zone, recalcReason(in, trigger), l.now())
		ev.Generation = &res
	default:
		l.log.Debugf("zone %s: no action (validated=%d open=%d threshold=%d planned=%t)",
			zone, in.ValidatedSum, in.OpenSum, in.Threshold, in.HasPlannedRoute)
	}
	return ev, nil
}

func recalcReason(in PolicyInput, trigger *domain.Incident) string {
	if trigger != nil && in.TriggerSeverity >= domain.SeverityHigh {
		return fmt.Sprintf("New critical incident #%d", trigger.ID)
	}
	return fmt.Sprintf("Open severity %d above 1.5x threshold %d", in.OpenSum, in.Threshold)
}

// SeverityReport is a read-only view of the numbers the threshold policy works on.
func (l *Lifecycle) SeverityReport(ctx context.Context, zone domain.Zone) (PolicyInput, error) {
	return l.policy.Snapshot(ctx, l.store, zone, nil)
}

// draft is a sequenced route that has not been stored yet.
type draft struct {
	route *domain.Route
	plans []*domain.TruckPlan
	stops []domain.Stop
	ids   []int64
}

// draftRoute packs and sequences pool. A nil draft comes with the outcome that stopped it.
func (l *Lifecycle) draftRoute(ctx context.Context, zone domain.Zone, pool []*domain.Incident, now time.Time) (*draft, GenerationResult) {
	loads, err := PackTrucks(pool)
	if err != nil {
		return nil, GenerationResult{Outcome: OutcomePackingFailure, Err: err}
	}
	if len(loads) == 0 {
		return nil, GenerationResult{Outcome: OutcomeNothingToGenerate}
	}

	plans, err := l.sequencer.Sequence(ctx, zone, loads, now)
	if err != nil {
		return nil, GenerationResult{Outcome: OutcomeOracleFailure, Err: err}
	}

	d := &draft{
		route: &domain.Route{
			Zone:        zone,
			State:       domain.RoutePlanned,
			TruckCount:  len(plans),
			GeneratedAt: now,
		},
		plans: plans,
	}
	for _, p := range plans {
		d.route.SeveritySum += p.Load
		d.route.TotalDistanceMeters += p.TotalDistanceMeters
		d.route.TotalDurationSeconds += p.TotalDurationSeconds
		d.stops = append(d.stops, p.Stops...)
		d.ids = append(d.ids, p.IncidentIDs...)
	}
	d.route.AppendNote(fmt.Sprintf("Generated automatically by threshold. %d incidents, %d trucks", len(d.ids), len(plans)))
	return d, GenerationResult{Outcome: OutcomeSuccess}
}

// storeDraft writes the route and its stops and assigns its incidents, which must still be eligible.
func storeDraft(ctx context.Context, q ports.Queries, d *draft) error {
	if err := q.CreateRoute(ctx, d.route); err != nil {
		return err
	}
	for i := range d.stops {
		d.stops[i].RouteID = d.route.ID
	}
	if err := q.CreateStops(ctx, d.stops); err != nil {
		return err
	}
	for _, id := range d.ids {
		inc, err := q.GetIncident(ctx, id)
		if err != nil {
			return err
		}
		if !inc.Eligible() {
			return domain.Conflictf("incident %d left the generation pool (state %s)", id, inc.State)
		}
		inc.State = domain.IncidentAssigned
		if err := q.UpdateIncident(ctx, inc); err != nil {
			return err
		}
	}
	return nil
}

// finish records the outcome of a generation attempt.
func (l *Lifecycle) finish(zone domain.Zone, res GenerationResult) GenerationResult {
	l.metrics.Generation(string(zone), string(res.Outcome))
	if res.Err != nil {
		l.log.Errorf("zone %s: generation %s: %v", zone, res.Outcome, res.Err)
	}
	return res
}

func (l *Lifecycle) announce(ctx context.Context, zone domain.Zone, d *draft, now time.Time) {
	l.log.Infof("zone %s: route %d generated (%d incidents, %d trucks, severity %d, %dm, %ds)",
		zone, d.route.ID, len(d.ids), d.route.TruckCount, d.route.SeveritySum,
		d.route.TotalDistanceMeters, d.route.TotalDurationSeconds)

	ev := domain.NewEvent(domain.EventNewRoute, zone, now)
	ev.RouteID = d.route.ID
	l.notify(ctx, ev)
}

func (l *Lifecycle) generate(ctx context.Context, zone domain.Zone, now time.Time) GenerationResult {
	pool, err := generationPool(ctx, l.store, zone)
	if err != nil {
		return l.finish(zone, GenerationResult{Outcome: OutcomePersistenceFailure, Err: err})
	}

	d, res := l.draftRoute(ctx, zone, pool, now)
	if d == nil {
		return l.finish(zone, res)
	}

	if err := l.store.InTx(ctx, func(q ports.Queries) error { return storeDraft(ctx, q, d) }); err != nil {
		return l.finish(zone, GenerationResult{Outcome: OutcomePersistenceFailure, Err: fmt.Errorf("persist route: %w", err)})
	}

	l.announce(ctx, zone, d, now)
	return l.finish(zone, GenerationResult{Outcome: OutcomeSuccess, Route: d.route, Plans: d.plans})
}

// recalculate sequences the replacement route before touching the planned ones, so a failed
// attempt leaves them in place. Release and replacement then commit together.
func (l *Lifecycle) recalculate(ctx context.Context, zone domain.Zone, reason string, now time.Time) GenerationResult {
	pool, err := recalculationPool(ctx, l.store, zone)
	if err != nil {
		return l.finish(zone, GenerationResult{Outcome: OutcomePersistenceFailure, Err: fmt.Errorf("recalculate zone %s: %w", zone, err)})
	}

	d, res := l.draftRoute(ctx, zone, pool, now)
	if d == nil && res.Outcome != OutcomeNothingToGenerate {
		return l.finish(zone, res)
	}

	var cancelled []int64
	note := fmt.Sprintf("[RECALCULATED] %s - %s", reason, now.UTC().Format(time.RFC3339))
	err = l.store.InTx(ctx, func(q ports.Queries) error {
		cancelled = cancelled[:0]
		routes, err := q.ListRoutes(ctx, ports.RouteFilter{Zone: zone, States: []domain.RouteState{domain.RoutePlanned}})
		if err != nil {
			return err
		}
		for _, r := range routes {
			if err := releaseRoute(ctx, q, r, now); err != nil {
				return fmt.Errorf("route %d: %w", r.ID, err)
			}
			r.State = domain.RouteCompleted
			r.AppendNote(note)
			if err := q.UpdateRoute(ctx, r); err != nil {
				return err
			}
			cancelled = append(cancelled, r.ID)
		}
		if d == nil {
			return nil
		}
		return storeDraft(ctx, q, d)
	})
	if err != nil {
		return l.finish(zone, GenerationResult{Outcome: OutcomePersistenceFailure, Err: fmt.Errorf("recalculate zone %s: %w", zone, err)})
	}

	for _, id := range cancelled {
		l.log.Infof("zone %s: route %d cancelled: %s", zone, id, reason)
		ev := domain.NewEvent(domain.EventRouteCancelled, zone, now)
		ev.RouteID = id
		ev.Reason = reason
		l.notify(ctx, ev)
	}

	if d == nil {
		return l.finish(zone, res)
	}
	l.announce(ctx, zone, d, now)
	return l.finish(zone, GenerationResult{Outcome: OutcomeSuccess, Route: d.route, Plans: d.plans})
}

// releaseRoute puts a planned route's assigned incidents back to Pending and
// cancels assignments that never started. ValidatedAt is kept.
func releaseRoute(ctx context.Context, q ports.Queries, r *domain.Route, now time.Time) error {
	stops, err := q.ListStops(ctx, r.ID)
	if err != nil {
		return err
	}
	ids := incidentIDs(stops, "")
	if len(ids) > 0 {
		incs, err := q.ListIncidents(ctx, ports.IncidentFilter{IDs: ids, States: []domain.IncidentState{domain.IncidentAssigned}})
		if err != nil {
			return err
		}
		for _, inc := range incs {
			inc.State = domain.IncidentPending
			if err := q.UpdateIncident(ctx, inc); err != nil {
				return err
			}
		}
	}

	asgs, err := q.ListAssignments(ctx, ports.AssignmentFilter{RouteID: r.ID, States: []domain.AssignmentState{domain.AssignmentAssigned}})
	if err != nil {
		return err
	}
	for _, a := range asgs {
		a.State = domain.AssignmentCancelled
		a.FinishedAt = &now
		if err := q.UpdateAssignment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// incidentIDs lists the incidents served by stops, optionally restricted to one truck.
func incidentIDs(stops []domain.Stop, truckLabel string) []int64 {
	ids := make([]int64, 0, len(stops))
	for _, s := range stops {
		if s.IncidentID == nil {
			continue
		}
		if truckLabel != "" && s.TruckLabel != truckLabel {
			continue
		}
		ids = append(ids, *s.IncidentID)
	}
	return ids
}

// completeIncidents moves the Assigned incidents among ids to Completed.
func completeIncidents(ctx context.Context, q ports.Queries, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	incs, err := q.ListIncidents(ctx, ports.IncidentFilter{IDs: ids, States: []domain.IncidentState{domain.IncidentAssigned}})
	if err != nil {
		return err
	}
	for _, inc := range incs {
		inc.State = domain.IncidentCompleted
		if err := q.UpdateIncident(ctx, inc); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifecycle) notify(ctx context.Context, ev domain.Event) {
	if l.sink == nil {
		return
	}
	l.sink.Notify(ctx, ev)
}

type AssignRequest struct {
	RouteID    int64
	DriverID   int64
	TruckClass domain.TruckClass
	TruckLabel string
}

// AssignDriver binds an available driver to one truck of a route that is not completed.
func (l *Lifecycle) AssignDriver(ctx context.Context, req AssignRequest) (*domain.Assignment, error) {
	if !req.TruckClass.Valid() {
		return nil, &domain.ValidationError{Field: "truck_class", Msg: "must be lateral or rear"}
	}

	a := &domain.Assignment{
		RouteID:    req.RouteID,
		DriverID:   req.DriverID,
		TruckClass: req.TruckClass,
		TruckLabel: req.TruckLabel,
		State:      domain.AssignmentAssigned,
		AssignedAt: l.now(),
	}

	unlock := l.drivers.Lock(req.DriverID)
	defer unlock()

	err := l.store.InTx(ctx, func(q ports.Queries) error {
		route, err := q.GetRoute(ctx, req.RouteID)
		if err != nil {
			return err
		}
		if route.State == domain.RouteCompleted {
			return domain.Conflictf("route %d is completed", route.ID)
		}

		if req.TruckLabel != "" {
			if err := checkTruckLabel(ctx, q, route.ID, req.TruckLabel, req.TruckClass); err != nil {
				return err
			}
		}

		d, err := q.GetDriver(ctx, req.DriverID)
		if err != nil {
			return err
		}
		if d.State != domain.DriverAvailable {
			return domain.Conflictf("driver %d is %s", d.ID, d.State)
		}
		if !d.ZonePreference.Covers(route.Zone) {
			return domain.Conflictf("driver %d prefers zone %s, route %d is in zone %s", d.ID, d.ZonePreference, route.ID, route.Zone)
		}

		active, err := q.ListAssignments(ctx, ports.AssignmentFilter{
			RouteID:  route.ID,
			DriverID: d.ID,
			States:   []domain.AssignmentState{domain.AssignmentAssigned, domain.AssignmentStarted},
		})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return domain.Conflictf("driver %d already holds assignment %d on route %d", d.ID, active[0].ID, route.ID)
		}

		return q.CreateAssignment(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}

	l.log.Infof("driver %d assigned to route %d (%s %s) as assignment %d", a.DriverID, a.RouteID, a.TruckClass, a.TruckLabel, a.ID)
	return a, nil
}

func checkTruckLabel(ctx context.Context, q ports.Queries, routeID int64, label string, class domain.TruckClass) error {
	stops, err := q.ListStops(ctx, routeID)
	if err != nil {
		return err
	}
	for _, s := range stops {
		if s.TruckLabel != label {
			continue
		}
		if s.TruckClass != class {
			return &domain.ValidationError{Field: "truck_class", Msg: fmt.Sprintf("truck %s is %s", label, s.TruckClass)}
		}
		return nil
	}
	return &domain.ValidationError{Field: "truck_label", Msg: fmt.Sprintf("route %d has no truck %s", routeID, label)}
}

// StartAssignment moves an Assigned assignment to Started, makes its driver Busy and
// the route Executing if it was still Planned.
func (l *Lifecycle) StartAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	unlock := l.assignments.Lock(id)
	defer unlock()

	// The one-started-assignment check reads across the driver's assignments,
	// so starts for the same driver run one at a time.
	owner, err := l.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("start assignment %d: %w", id, err)
	}
	unlockDriver := l.drivers.Lock(owner.DriverID)
	defer unlockDriver()

	now := l.now()
	var a *domain.Assignment
	err = l.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if a, err = q.GetAssignment(ctx, id); err != nil {
			return err
		}
		if a.State != domain.AssignmentAssigned {
			return domain.Conflictf("assignment %d is %s, want %s", id, a.State, domain.AssignmentAssigned)
		}

		d, err := q.GetDriver(ctx, a.DriverID)
		if err != nil {
			return err
		}
		if d.State == domain.DriverInactive {
			return domain.Conflictf("driver %d is inactive", d.ID)
		}
		started, err := q.ListAssignments(ctx, ports.AssignmentFilter{
			DriverID: d.ID,
			States:   []domain.AssignmentState{domain.AssignmentStarted},
		})
		if err != nil {
			return err
		}
		if len(started) > 0 {
			return domain.Conflictf("driver %d already started assignment %d", d.ID, started[0].ID)
		}

		route, err := q.GetRoute(ctx, a.RouteID)
		if err != nil {
			return err
		}
		if route.State == domain.RouteCompleted {
			return domain.Conflictf("route %d is completed", route.ID)
		}

		a.State = domain.AssignmentStarted
		a.StartedAt = &now
		if err := q.UpdateAssignment(ctx, a); err != nil {
			return err
		}
		d.State = domain.DriverBusy
		if err := q.UpdateDriver(ctx, d); err != nil {
			return err
		}
		if route.State == domain.RoutePlanned {
			route.State = domain.RouteExecuting
			return q.UpdateRoute(ctx, route)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start assignment %d: %w", id, err)
	}

	l.log.Infof("assignment %d started (route %d, driver %d)", a.ID, a.RouteID, a.DriverID)
	return a, nil
}

// FinishAssignment completes a Started assignment and its truck's incidents. When no
// sibling assignment remains Assigned or Started the route and its remaining incidents complete.
func (l *Lifecycle) FinishAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	unlock := l.assignments.Lock(id)
	defer unlock()

	now := l.now()
	var (
		a             *domain.Assignment
		routeFinished bool
	)
	err := l.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if a, err = q.GetAssignment(ctx, id); err != nil {
			return err
		}
		if a.State != domain.AssignmentStarted {
			return domain.Conflictf("assignment %d is %s, want %s", id, a.State, domain.AssignmentStarted)
		}

		a.State = domain.AssignmentCompleted
		a.FinishedAt = &now
		if err := q.UpdateAssignment(ctx, a); err != nil {
			return err
		}

		d, err := q.GetDriver(ctx, a.DriverID)
		if err != nil {
			return err
		}
		d.State = domain.DriverAvailable
		if err := q.UpdateDriver(ctx, d); err != nil {
			return err
		}

		stops, err := q.ListStops(ctx, a.RouteID)
		if err != nil {
			return err
		}
		if a.TruckLabel != "" {
			if err := completeIncidents(ctx, q, incidentIDs(stops, a.TruckLabel)); err != nil {
				return err
			}
		}

		open, err := q.ListAssignments(ctx, ports.AssignmentFilter{
			RouteID: a.RouteID,
			States:  []domain.AssignmentState{domain.AssignmentAssigned, domain.AssignmentStarted},
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return nil
		}

		route, err := q.GetRoute(ctx, a.RouteID)
		if err != nil {
			return err
		}
		if route.State != domain.RouteCompleted {
			route.State = domain.RouteCompleted
			if err := q.UpdateRoute(ctx, route); err != nil {
				return err
			}
			routeFinished = true
		}
		return completeIncidents(ctx, q, incidentIDs(stops, ""))
	})
	if err != nil {
		return nil, fmt.Errorf("finish assignment %d: %w", id, err)
	}

	l.log.Infof("assignment %d finished (route %d, driver %d)", a.ID, a.RouteID, a.DriverID)
	if routeFinished {
		l.log.Infof("route %d completed", a.RouteID)
	}
	return a, nil
}

// CancelAssignment withdraws an assignment that has not started.
func (l *Lifecycle) CancelAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	unlock := l.assignments.Lock(id)
	defer unlock()

	now := l.now()
	var a *domain.Assignment
	err := l.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if a, err = q.GetAssignment(ctx, id); err != nil {
			return err
		}
		if a.State != domain.AssignmentAssigned {
			return domain.Conflictf("assignment %d is %s, only %s can be cancelled", id, a.State, domain.AssignmentAssigned)
		}
		a.State = domain.AssignmentCancelled
		a.FinishedAt = &now
		return q.UpdateAssignment(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel assignment %d: %w", id, err)
	}
	return a, nil
}

// RouteDetail is a route with its stops and assignments.
type RouteDetail struct {
	Route       *domain.Route
	Stops       []domain.Stop
	Assignments []*domain.Assignment
}

func (l *Lifecycle) Route(ctx context.Context, id int64) (*RouteDetail, error) {
	r, err := l.store.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	stops, err := l.store.ListStops(ctx, id)
	if err != nil {
		return nil, err
	}
	asgs, err := l.store.ListAssignments(ctx, ports.AssignmentFilter{RouteID: id})
	if err != nil {
		return nil, err
	}
	return &RouteDetail{Route: r, Stops: stops, Assignments: asgs}, nil
}

func (l *Lifecycle) Routes(ctx context.Context, f ports.RouteFilter) ([]*domain.Route, error) {
	return l.store.ListRoutes(ctx, f)
}
