package subscription

import (
	"slices"
	"time"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
)

// snapshot is the state right after one event.
type snapshot struct {
	event          eventstore.Event
	status         Status
	planName       string
	phaseType      catalog.PhaseType
	startDate      time.Time
	phaseStartDate time.Time
	cancelDate     *time.Time
}

// apply folds ev into the state prev.
func apply(prev snapshot, ev eventstore.Event) snapshot {
	next := prev
	next.event = ev

	switch ev.Kind {
	case eventstore.KindCreate:
		next.status = StatusActive
		next.planName, next.phaseType = ev.PlanName, ev.PhaseType
		next.startDate = ev.EffectiveDate
		next.phaseStartDate = ev.EffectiveDate
		next.cancelDate = nil
	case eventstore.KindPhase, eventstore.KindChange, eventstore.KindReactivate:
		next.status = StatusActive
		next.planName, next.phaseType = ev.PlanName, ev.PhaseType
		next.phaseStartDate = ev.EffectiveDate
		next.cancelDate = nil
	case eventstore.KindCancel:
		next.status = StatusCancelled
		at := ev.EffectiveDate
		next.cancelDate = &at
	case eventstore.KindUncancel:
		// The phase in flight before the cancellation keeps its start date.
		next.status = StatusActive
		next.planName, next.phaseType = ev.PlanName, ev.PhaseType
		next.cancelDate = nil
	}
	return next
}

// Project folds the active events of one subscription as of asOf.
// Events effective at or before asOf are applied in effective-date order;
// before the CREATE date the status is StatusNotStarted. Inactive events are
// ignored, and the input slice is not modified.
func Project(events []eventstore.Event, asOf time.Time) State {
	active := make([]eventstore.Event, 0, len(events))
	for _, ev := range events {
		if ev.IsActive {
			active = append(active, ev)
		}
	}
	slices.SortStableFunc(active, func(a, b eventstore.Event) int {
		return a.EffectiveDate.Compare(b.EffectiveDate)
	})

	asOf = asOf.UTC()
	st := State{AsOf: asOf, Status: StatusNotStarted}
	if len(active) == 0 {
		return st
	}
	st.SubscriptionID = active[0].SubscriptionID

	snaps := make([]snapshot, len(active))
	cur := snapshot{status: StatusNotStarted}
	applied := -1
	for i, ev := range active {
		cur = apply(cur, ev)
		snaps[i] = cur
		if ev.Version > st.ActiveVersion {
			st.ActiveVersion = ev.Version
		}
		if !ev.EffectiveDate.After(asOf) {
			applied = i
		}
	}

	if applied >= 0 {
		s := snaps[applied]
		st.Status = s.status
		st.PlanName = s.planName
		st.PhaseType = s.phaseType
		st.StartDate = s.startDate
		st.PhaseStartDate = s.phaseStartDate
		st.CancelDate = s.cancelDate
		last := s.event
		st.LastEvent = &last

		var prev *snapshot
		if applied > 0 {
			prev = &snaps[applied-1]
		}
		st.PreviousTransition = pair(prev, &snaps[applied])
	} else {
		st.StartDate = snaps[0].startDate
	}

	if applied+1 < len(snaps) {
		var prev *snapshot
		if applied >= 0 {
			prev = &snaps[applied]
		}
		st.NextTransition = pair(prev, &snaps[applied+1])
	}

	if st.Status == StatusActive {
		for _, s := range snaps[applied+1:] {
			if s.event.Kind == eventstore.KindCancel {
				st.Status = StatusPendingCancellation
				st.CancelDate = s.cancelDate
				break
			}
		}
	}
	return st
}

func pair(prev, next *snapshot) *Transition {
	tr := &Transition{
		Kind:                 next.event.Kind,
		EffectiveDate:        next.event.EffectiveDate,
		PreviousStatus:       StatusNotStarted,
		NextEventID:          next.event.ID,
		NextEventCreatedDate: next.event.CreatedDate,
		NextStatus:           next.status,
		NextPlanName:         next.planName,
		NextPhaseType:        next.phaseType,
	}
	if prev != nil {
		tr.PreviousEventID = prev.event.ID
		tr.PreviousEventCreatedDate = prev.event.CreatedDate
		tr.PreviousStatus = prev.status
		tr.PreviousPlanName = prev.planName
		tr.PreviousPhaseType = prev.phaseType
	}
	return tr
}
